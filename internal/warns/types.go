// Package warns implements the warning ledger and keyword filter registry
// used to moderate group chats.
package warns

import (
	"context"
	"errors"
)

const (
	// DefaultLimit is the number of warns that triggers escalation when a chat never set one.
	DefaultLimit = 3
	// MinLimit is the lowest limit a chat may configure.
	MinLimit = 3
	// MaxImportWarns caps the warns a single imported user may carry.
	MaxImportWarns = 1000
	// MaxImportTotal caps the warns a single import document may add.
	MaxImportTotal = 20000
)

var (
	ErrLimitTooLow     = errors.New("warns: limit below minimum")
	ErrMalformedFilter = errors.New("warns: filter needs a keyword and a reply")
	ErrNoTarget        = errors.New("warns: no user designated")
	ErrBadImport       = errors.New("warns: invalid import data")
)

// Record is the warning state of one user in one chat. Reasons may be shorter
// than Count because empty reasons are not stored.
type Record struct {
	Count   int
	Reasons []string
}

// Settings is the per-chat escalation policy. SoftWarn kicks instead of banning.
type Settings struct {
	Limit    int
	SoftWarn bool
}

// DefaultSettings is returned for chats without stored settings.
func DefaultSettings() Settings {
	return Settings{Limit: DefaultLimit}
}

// Filter auto-warns senders whose message contains Keyword.
type Filter struct {
	ChatID  int64
	Keyword string
	Reply   string
}

// Source labels how a warn was issued.
type Source string

const (
	SourceManual Source = "manual"
	SourceFilter Source = "filter"
	SourceImport Source = "import"
)

// LedgerStore persists warn records. AddWarn must be additive under concurrency.
type LedgerStore interface {
	AddWarn(ctx context.Context, chatID, userID int64, reason string) (Record, error)
	RemoveWarn(ctx context.Context, chatID, userID int64) (bool, error)
	ResetWarns(ctx context.Context, chatID, userID int64) error
	Warns(ctx context.Context, chatID, userID int64) (Record, error)
	ChatWarns(ctx context.Context, chatID int64) (map[int64]int, error)
}

// SettingsStore persists per-chat warn settings.
type SettingsStore interface {
	Settings(ctx context.Context, chatID int64) (Settings, error)
	SetLimit(ctx context.Context, chatID int64, limit int) error
	SetSoftWarn(ctx context.Context, chatID int64, soft bool) error
}

// FilterStore persists keyword filters. Filters returns them ordered by keyword.
type FilterStore interface {
	UpsertFilter(ctx context.Context, f Filter) error
	RemoveFilter(ctx context.Context, chatID int64, keyword string) (bool, error)
	Filters(ctx context.Context, chatID int64) ([]Filter, error)
	CountFilters(ctx context.Context, chatID int64) (int, error)
}

// AdminStore holds cross-chat maintenance queries.
type AdminStore interface {
	MigrateChat(ctx context.Context, oldChatID, newChatID int64) error
	Stats(ctx context.Context) (Stats, error)
}

// Store is everything the warns package needs from persistence.
type Store interface {
	LedgerStore
	SettingsStore
	FilterStore
	AdminStore
}

// Moderator performs permission lookups and removals on the chat platform.
type Moderator interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	Kick(ctx context.Context, chatID, userID int64) error
	Ban(ctx context.Context, chatID, userID int64) error
}

// Stats aggregates warns and filters across all chats.
type Stats struct {
	Warns       int `db:"warns"`
	WarnChats   int `db:"warn_chats"`
	Filters     int `db:"filters"`
	FilterChats int `db:"filter_chats"`
}

// Member is a user seen in a chat, kept so @username targets can be resolved.
type Member struct {
	ID        int64  `db:"user_id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
}

// MemberStore records senders and resolves usernames.
type MemberStore interface {
	RecordMember(ctx context.Context, m Member) error
	MemberByUsername(ctx context.Context, username string) (Member, bool, error)
}
