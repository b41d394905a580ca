package warns

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/DevTeady/EmiliaHikari/core/logger"
)

// ExportData is the JSON document produced by Export and accepted by Import.
type ExportData struct {
	Warns    map[string]int `json:"warns"`
	Limit    int            `json:"limit,omitempty"`
	SoftWarn *bool          `json:"soft_warn,omitempty"`
	Filters  []ExportFilter `json:"filters,omitempty"`
}

type ExportFilter struct {
	Keyword string `json:"keyword"`
	Reply   string `json:"reply"`
}

// Service bundles chat-level maintenance around the ledger and registry.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ChatSummary describes the chat's filter count and escalation policy in Markdown.
func (s *Service) ChatSummary(ctx context.Context, chatID int64) (string, error) {
	n, err := s.store.CountFilters(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("count filters: %w", err)
	}
	settings, err := s.store.Settings(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("get settings: %w", err)
	}
	action := "banned"
	if settings.SoftWarn {
		action = "kicked"
	}
	return fmt.Sprintf("This chat has `%d` warn filters. It takes `%d` warns before the user gets *%s*.",
		n, settings.Limit, action), nil
}

// Import applies the warn counts in data as reasonless warns without
// escalating. Settings and filters are restored when present. It returns the
// number of warns added. The whole document is validated before anything is
// written; a bad user id, a count outside [0, MaxImportWarns] or more than
// MaxImportTotal warns overall fails with ErrBadImport.
func (s *Service) Import(ctx context.Context, chatID int64, data ExportData) (int, error) {
	counts, err := importCounts(data.Warns)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, uc := range counts {
		for range uc.count {
			if _, err := s.store.AddWarn(ctx, chatID, uc.userID, ""); err != nil {
				return added, fmt.Errorf("import warn: %w", err)
			}
			added++
		}
	}
	warnsIssued.WithLabelValues(string(SourceImport)).Add(float64(added))

	if data.Limit >= MinLimit {
		if err := s.store.SetLimit(ctx, chatID, data.Limit); err != nil {
			return added, fmt.Errorf("import limit: %w", err)
		}
	}
	if data.SoftWarn != nil {
		if err := s.store.SetSoftWarn(ctx, chatID, *data.SoftWarn); err != nil {
			return added, fmt.Errorf("import strength: %w", err)
		}
	}
	for _, f := range data.Filters {
		if f.Keyword == "" || f.Reply == "" {
			continue
		}
		kw := strings.ToLower(f.Keyword)
		if err := s.store.UpsertFilter(ctx, Filter{ChatID: chatID, Keyword: kw, Reply: f.Reply}); err != nil {
			return added, fmt.Errorf("import filter: %w", err)
		}
	}
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warns.import",
		slog.Int("warns", added),
		slog.Int("filters", len(data.Filters)),
	)
	return added, nil
}

type userCount struct {
	userID int64
	count  int
}

func importCounts(raw map[string]int) ([]userCount, error) {
	out := make([]userCount, 0, len(raw))
	total := 0
	for id, n := range raw {
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: user id %q", ErrBadImport, id)
		}
		if n < 0 || n > MaxImportWarns {
			return nil, fmt.Errorf("%w: %d warns for user %d", ErrBadImport, n, userID)
		}
		total += n
		out = append(out, userCount{userID: userID, count: n})
	}
	if total > MaxImportTotal {
		return nil, fmt.Errorf("%w: %d warns in total", ErrBadImport, total)
	}
	slices.SortFunc(out, func(a, b userCount) int { return cmp.Compare(a.userID, b.userID) })
	return out, nil
}

// Export snapshots the chat's warn counts, settings and filters.
func (s *Service) Export(ctx context.Context, chatID int64) (ExportData, error) {
	counts, err := s.store.ChatWarns(ctx, chatID)
	if err != nil {
		return ExportData{}, fmt.Errorf("export warns: %w", err)
	}
	settings, err := s.store.Settings(ctx, chatID)
	if err != nil {
		return ExportData{}, fmt.Errorf("export settings: %w", err)
	}
	filters, err := s.store.Filters(ctx, chatID)
	if err != nil {
		return ExportData{}, fmt.Errorf("export filters: %w", err)
	}
	out := ExportData{
		Warns:    make(map[string]int, len(counts)),
		Limit:    settings.Limit,
		SoftWarn: &settings.SoftWarn,
	}
	for id, n := range counts {
		if n > 0 {
			out.Warns[strconv.FormatInt(id, 10)] = n
		}
	}
	for _, f := range filters {
		out.Filters = append(out.Filters, ExportFilter{Keyword: f.Keyword, Reply: f.Reply})
	}
	return out, nil
}

// MigrateChat moves every record of oldChatID to newChatID.
func (s *Service) MigrateChat(ctx context.Context, oldChatID, newChatID int64) error {
	if err := s.store.MigrateChat(ctx, oldChatID, newChatID); err != nil {
		return fmt.Errorf("migrate chat: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warns.migrate",
		slog.Int64("from_chat_id", oldChatID),
		slog.Int64("to_chat_id", newChatID),
	)
	return nil
}

// Stats returns totals across all chats.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// String renders the stats line shown to the bot owner.
func (st Stats) String() string {
	return fmt.Sprintf("%d overall warns, across %d chats.\n%d warn filters, across %d chats.",
		st.Warns, st.WarnChats, st.Filters, st.FilterChats)
}
