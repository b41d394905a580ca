package warns

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/telegram/format"
)

// ListHeader opens the first page of a chat's filter list.
const ListHeader = "*Current warning filters in this chat:*\n"

// RemoveResult reports how a filter removal went.
type RemoveResult int

const (
	Removed RemoveResult = iota
	NoFilters
	FilterNotFound
)

// Registry manages keyword filters and applies them to incoming messages.
type Registry struct {
	store  FilterStore
	ledger *Ledger
}

func NewRegistry(store FilterStore, ledger *Ledger) *Registry {
	return &Registry{store: store, ledger: ledger}
}

// AddFilter parses raw as a keyword followed by the reply and stores it,
// replacing any filter with the same keyword in the chat.
func (r *Registry) AddFilter(ctx context.Context, chatID int64, raw string) (Filter, error) {
	parts := SplitQuotes(raw)
	if len(parts) < 2 {
		return Filter{}, ErrMalformedFilter
	}
	f := Filter{
		ChatID:  chatID,
		Keyword: strings.ToLower(parts[0]),
		Reply:   parts[1],
	}
	if err := r.store.UpsertFilter(ctx, f); err != nil {
		return Filter{}, fmt.Errorf("add filter: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCFilters, slog.LevelInfo, "filter.add", slog.String("keyword", f.Keyword))
	return f, nil
}

// RemoveFilter deletes the filter whose stored keyword equals keyword exactly.
func (r *Registry) RemoveFilter(ctx context.Context, chatID int64, keyword string) (RemoveResult, error) {
	n, err := r.store.CountFilters(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("count filters: %w", err)
	}
	if n == 0 {
		return NoFilters, nil
	}
	ok, err := r.store.RemoveFilter(ctx, chatID, keyword)
	if err != nil {
		return 0, fmt.Errorf("remove filter: %w", err)
	}
	if !ok {
		return FilterNotFound, nil
	}
	logger.LogEvent(ctx, logger.SVCFilters, slog.LevelInfo, "filter.remove", slog.String("keyword", keyword))
	return Removed, nil
}

// ListFilters renders the chat's keywords as Markdown pages of at most
// maxLen characters. It returns nil when the chat has no filters.
func (r *Registry) ListFilters(ctx context.Context, chatID int64, maxLen int) ([]string, error) {
	filters, err := r.store.Filters(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	if len(filters) == 0 {
		return nil, nil
	}
	entries := make([]string, 0, len(filters))
	for _, f := range filters {
		entries = append(entries, " - "+format.EscapeMD(f.Keyword)+"\n")
	}
	return format.Paginate(ListHeader, entries, maxLen), nil
}

// MatchAndWarn warns userID once for every filter whose keyword appears in
// text. Several matching filters each add their own warn.
func (r *Registry) MatchAndWarn(ctx context.Context, chatID, userID int64, text string) ([]Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	filters, err := r.store.Filters(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load filters: %w", err)
	}
	var outcomes []Outcome
	for _, f := range filters {
		if !Matches(f.Keyword, text) {
			continue
		}
		filterMatches.Inc()
		logger.LogEvent(ctx, logger.SVCFilters, slog.LevelDebug, "filter.match",
			slog.String("keyword", f.Keyword),
			slog.Int64("target_id", userID),
		)
		out, err := r.ledger.Warn(ctx, chatID, userID, f.Reply, SourceFilter)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

const wordEdge = `[^\p{L}\p{N}_]`

// Matches reports whether keyword occurs in text as a whole word, ignoring case.
func Matches(keyword, text string) bool {
	if keyword == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)(?:^|` + wordEdge + `)` + regexp.QuoteMeta(keyword) + `(?:$|` + wordEdge + `)`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
