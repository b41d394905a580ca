package warns

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type key struct{ chat, user int64 }

type memStore struct {
	mu       sync.Mutex
	records  map[key]*Record
	settings map[int64]Settings
	filters  map[int64]map[string]string
	failAdd  error
}

func newMemStore() *memStore {
	return &memStore{
		records:  map[key]*Record{},
		settings: map[int64]Settings{},
		filters:  map[int64]map[string]string{},
	}
}

func (m *memStore) AddWarn(_ context.Context, chatID, userID int64, reason string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		return Record{}, m.failAdd
	}
	rec, ok := m.records[key{chatID, userID}]
	if !ok {
		rec = &Record{}
		m.records[key{chatID, userID}] = rec
	}
	rec.Count++
	if reason != "" {
		rec.Reasons = append(rec.Reasons, reason)
	}
	return Record{Count: rec.Count, Reasons: append([]string(nil), rec.Reasons...)}, nil
}

func (m *memStore) RemoveWarn(_ context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key{chatID, userID}]
	if !ok || rec.Count == 0 {
		return false, nil
	}
	rec.Count--
	if len(rec.Reasons) > 0 {
		rec.Reasons = rec.Reasons[:len(rec.Reasons)-1]
	}
	return true, nil
}

func (m *memStore) ResetWarns(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key{chatID, userID}]; ok {
		rec.Count = 0
		rec.Reasons = nil
	}
	return nil
}

func (m *memStore) Warns(_ context.Context, chatID, userID int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key{chatID, userID}]
	if !ok {
		return Record{}, nil
	}
	return Record{Count: rec.Count, Reasons: append([]string(nil), rec.Reasons...)}, nil
}

func (m *memStore) ChatWarns(_ context.Context, chatID int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]int{}
	for k, rec := range m.records {
		if k.chat == chatID {
			out[k.user] = rec.Count
		}
	}
	return out, nil
}

func (m *memStore) Settings(_ context.Context, chatID int64) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[chatID]; ok {
		return s, nil
	}
	return DefaultSettings(), nil
}

func (m *memStore) SetLimit(_ context.Context, chatID int64, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[chatID]
	if !ok {
		s = DefaultSettings()
	}
	s.Limit = limit
	m.settings[chatID] = s
	return nil
}

func (m *memStore) SetSoftWarn(_ context.Context, chatID int64, soft bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[chatID]
	if !ok {
		s = DefaultSettings()
	}
	s.SoftWarn = soft
	m.settings[chatID] = s
	return nil
}

func (m *memStore) UpsertFilter(_ context.Context, f Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.filters[f.ChatID] == nil {
		m.filters[f.ChatID] = map[string]string{}
	}
	m.filters[f.ChatID][f.Keyword] = f.Reply
	return nil
}

func (m *memStore) RemoveFilter(_ context.Context, chatID int64, keyword string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.filters[chatID][keyword]; !ok {
		return false, nil
	}
	delete(m.filters[chatID], keyword)
	return true, nil
}

func (m *memStore) Filters(_ context.Context, chatID int64) ([]Filter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Filter
	for kw, reply := range m.filters[chatID] {
		out = append(out, Filter{ChatID: chatID, Keyword: kw, Reply: reply})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out, nil
}

func (m *memStore) CountFilters(_ context.Context, chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filters[chatID]), nil
}

func (m *memStore) MigrateChat(_ context.Context, oldChatID, newChatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, rec := range m.records {
		if k.chat == oldChatID {
			m.records[key{newChatID, k.user}] = rec
			delete(m.records, k)
		}
	}
	if s, ok := m.settings[oldChatID]; ok {
		m.settings[newChatID] = s
		delete(m.settings, oldChatID)
	}
	if f, ok := m.filters[oldChatID]; ok {
		m.filters[newChatID] = f
		delete(m.filters, oldChatID)
	}
	return nil
}

func (m *memStore) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st Stats
	chats := map[int64]struct{}{}
	for k, rec := range m.records {
		st.Warns += rec.Count
		if rec.Count > 0 {
			chats[k.chat] = struct{}{}
		}
	}
	st.WarnChats = len(chats)
	for _, f := range m.filters {
		if len(f) > 0 {
			st.Filters += len(f)
			st.FilterChats++
		}
	}
	return st, nil
}

type fakeModerator struct {
	admins  map[int64]bool
	kicks   []int64
	bans    []int64
	failErr error
}

func (f *fakeModerator) IsAdmin(_ context.Context, _, userID int64) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeModerator) Kick(_ context.Context, _, userID int64) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.kicks = append(f.kicks, userID)
	return nil
}

func (f *fakeModerator) Ban(_ context.Context, _, userID int64) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.bans = append(f.bans, userID)
	return nil
}

var errRestricted = errors.New("not enough rights to restrict/unrestrict chat member")
