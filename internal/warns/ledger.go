package warns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DevTeady/EmiliaHikari/core/logger"
)

// OutcomeKind classifies the result of a single warn.
type OutcomeKind int

const (
	// OutcomeWarned means the count grew and stayed below the limit.
	OutcomeWarned OutcomeKind = iota
	// OutcomeAdminImmune means the target administers the chat and nothing changed.
	OutcomeAdminImmune
	// OutcomeLimitReached means the user was kicked or banned and the record reset.
	OutcomeLimitReached
	// OutcomeActionFailed means the limit was reached but the removal failed; the count stands.
	OutcomeActionFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdminImmune:
		return "admin_immune"
	case OutcomeLimitReached:
		return "limit_reached"
	case OutcomeActionFailed:
		return "action_failed"
	default:
		return "warned"
	}
}

// Outcome describes what a warn did.
type Outcome struct {
	Kind     OutcomeKind
	UserID   int64
	Count    int
	Limit    int
	Reason   string
	SoftWarn bool
	// Err is the moderation error for OutcomeActionFailed.
	Err error
}

// Action names the escalation applied for the outcome's settings.
func (o Outcome) Action() string {
	if o.SoftWarn {
		return "kick"
	}
	return "ban"
}

// Ledger tracks warnings per user and escalates once a chat's limit is hit.
type Ledger struct {
	store    LedgerStore
	settings SettingsStore
	mod      Moderator
}

func NewLedger(store LedgerStore, settings SettingsStore, mod Moderator) *Ledger {
	return &Ledger{store: store, settings: settings, mod: mod}
}

// Warn adds one warning with an optional reason and escalates at the limit.
func (l *Ledger) Warn(ctx context.Context, chatID, userID int64, reason string, source Source) (Outcome, error) {
	admin, err := l.mod.IsAdmin(ctx, chatID, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("check admin: %w", err)
	}
	if admin {
		logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warn.skip",
			slog.Int64("target_id", userID),
			slog.String("outcome", OutcomeAdminImmune.String()),
			slog.String("source", string(source)),
		)
		return Outcome{Kind: OutcomeAdminImmune, UserID: userID}, nil
	}

	settings, err := l.settings.Settings(ctx, chatID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load settings: %w", err)
	}
	rec, err := l.store.AddWarn(ctx, chatID, userID, reason)
	if err != nil {
		return Outcome{}, fmt.Errorf("add warn: %w", err)
	}
	warnsIssued.WithLabelValues(string(source)).Inc()

	out := Outcome{
		Kind:     OutcomeWarned,
		UserID:   userID,
		Count:    rec.Count,
		Limit:    settings.Limit,
		Reason:   reason,
		SoftWarn: settings.SoftWarn,
	}
	if rec.Count < settings.Limit {
		logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warn.issue",
			slog.Int64("target_id", userID),
			slog.Int("warns", rec.Count),
			slog.Int("limit", settings.Limit),
			slog.String("source", string(source)),
			slog.String("outcome", out.Kind.String()),
		)
		return out, nil
	}

	if settings.SoftWarn {
		err = l.mod.Kick(ctx, chatID, userID)
	} else {
		err = l.mod.Ban(ctx, chatID, userID)
	}
	if err != nil {
		out.Kind = OutcomeActionFailed
		out.Err = err
		escalations.WithLabelValues(out.Action(), "fail").Inc()
		logger.LogEvent(ctx, logger.SVCWarns, slog.LevelWarn, "warn.escalate",
			slog.Int64("target_id", userID),
			slog.Int("warns", rec.Count),
			slog.Int("limit", settings.Limit),
			slog.String("action", out.Action()),
			slog.String("outcome", out.Kind.String()),
			slog.String("err", err.Error()),
		)
		return out, nil
	}
	escalations.WithLabelValues(out.Action(), "ok").Inc()

	if err := l.store.ResetWarns(ctx, chatID, userID); err != nil {
		return out, fmt.Errorf("reset after %s: %w", out.Action(), err)
	}
	out.Kind = OutcomeLimitReached
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warn.escalate",
		slog.Int64("target_id", userID),
		slog.Int("warns", rec.Count),
		slog.Int("limit", settings.Limit),
		slog.String("action", out.Action()),
		slog.String("outcome", out.Kind.String()),
	)
	return out, nil
}

// ResetWarns clears a user's warnings. It is a no-op for users without any.
func (l *Ledger) ResetWarns(ctx context.Context, chatID, userID int64) error {
	if err := l.store.ResetWarns(ctx, chatID, userID); err != nil {
		return fmt.Errorf("reset warns: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warn.reset", slog.Int64("target_id", userID))
	return nil
}

// RemoveLastWarn drops the most recent warning and reports whether one existed.
func (l *Ledger) RemoveLastWarn(ctx context.Context, chatID, userID int64) (bool, error) {
	removed, err := l.store.RemoveWarn(ctx, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("remove warn: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "warn.remove",
		slog.Int64("target_id", userID),
		slog.Bool("removed", removed),
	)
	return removed, nil
}

// Warns returns the user's record; a zero Record when there is none.
func (l *Ledger) Warns(ctx context.Context, chatID, userID int64) (Record, error) {
	rec, err := l.store.Warns(ctx, chatID, userID)
	if err != nil {
		return Record{}, fmt.Errorf("get warns: %w", err)
	}
	return rec, nil
}

// Settings returns the chat's settings or the defaults.
func (l *Ledger) Settings(ctx context.Context, chatID int64) (Settings, error) {
	s, err := l.settings.Settings(ctx, chatID)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// SetLimit stores a new limit; values below MinLimit are rejected with ErrLimitTooLow.
func (l *Ledger) SetLimit(ctx context.Context, chatID int64, limit int) error {
	if limit < MinLimit {
		return ErrLimitTooLow
	}
	if err := l.settings.SetLimit(ctx, chatID, limit); err != nil {
		return fmt.Errorf("set limit: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "settings.limit", slog.Int("limit", limit))
	return nil
}

// SetStrength stores the escalation mode; soft means kick.
func (l *Ledger) SetStrength(ctx context.Context, chatID int64, soft bool) error {
	if err := l.settings.SetSoftWarn(ctx, chatID, soft); err != nil {
		return fmt.Errorf("set strength: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCWarns, slog.LevelInfo, "settings.strength", slog.Bool("soft_warn", soft))
	return nil
}
