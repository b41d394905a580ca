// Package storage persists warns, settings, filters and known members with sqlx.
// Queries are written with ? placeholders and rebound for the active driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/internal/warns"
)

// Store implements warns.Store and warns.MemberStore.
type Store struct {
	db *sqlx.DB
}

var (
	_ warns.Store       = (*Store)(nil)
	_ warns.MemberStore = (*Store)(nil)
)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		logger.Store.Warn("store tx failed",
			slog.String("event", "store.tx"),
			slog.String("op", op),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	if logger.ShouldSampleDebug() {
		logger.Store.Debug("store tx",
			slog.String("event", "store.tx"),
			slog.String("op", op),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return nil
}

func (s *Store) AddWarn(ctx context.Context, chatID, userID int64, reason string) (warns.Record, error) {
	var rec warns.Record
	err := s.withTx(ctx, "add warn", func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &rec.Count, tx.Rebind(`
			INSERT INTO warns (chat_id, user_id, num_warns) VALUES (?, ?, 1)
			ON CONFLICT (chat_id, user_id) DO UPDATE SET num_warns = warns.num_warns + 1
			RETURNING num_warns`), chatID, userID); err != nil {
			return err
		}
		if reason != "" {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO warn_reasons (chat_id, user_id, seq, reason) VALUES (?, ?, ?, ?)
				ON CONFLICT (chat_id, user_id, seq) DO UPDATE SET reason = excluded.reason`),
				chatID, userID, rec.Count, reason); err != nil {
				return err
			}
		}
		return tx.SelectContext(ctx, &rec.Reasons, tx.Rebind(
			`SELECT reason FROM warn_reasons WHERE chat_id = ? AND user_id = ? ORDER BY seq`), chatID, userID)
	})
	return rec, err
}

func (s *Store) RemoveWarn(ctx context.Context, chatID, userID int64) (bool, error) {
	removed := false
	err := s.withTx(ctx, "remove warn", func(tx *sqlx.Tx) error {
		var left int
		err := tx.GetContext(ctx, &left, tx.Rebind(`
			UPDATE warns SET num_warns = num_warns - 1
			WHERE chat_id = ? AND user_id = ? AND num_warns > 0
			RETURNING num_warns`), chatID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		removed = true
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM warn_reasons
			WHERE chat_id = ? AND user_id = ? AND seq = (
				SELECT MAX(seq) FROM warn_reasons WHERE chat_id = ? AND user_id = ?
			)`), chatID, userID, chatID, userID)
		return err
	})
	return removed, err
}

func (s *Store) ResetWarns(ctx context.Context, chatID, userID int64) error {
	return s.withTx(ctx, "reset warns", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE warns SET num_warns = 0 WHERE chat_id = ? AND user_id = ?`), chatID, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM warn_reasons WHERE chat_id = ? AND user_id = ?`), chatID, userID)
		return err
	})
}

func (s *Store) Warns(ctx context.Context, chatID, userID int64) (warns.Record, error) {
	var rec warns.Record
	err := s.db.GetContext(ctx, &rec.Count, s.db.Rebind(
		`SELECT num_warns FROM warns WHERE chat_id = ? AND user_id = ?`), chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return warns.Record{}, nil
	}
	if err != nil {
		return warns.Record{}, fmt.Errorf("get warns: %w", err)
	}
	if err := s.db.SelectContext(ctx, &rec.Reasons, s.db.Rebind(
		`SELECT reason FROM warn_reasons WHERE chat_id = ? AND user_id = ? ORDER BY seq`), chatID, userID); err != nil {
		return warns.Record{}, fmt.Errorf("get reasons: %w", err)
	}
	return rec, nil
}

func (s *Store) ChatWarns(ctx context.Context, chatID int64) (map[int64]int, error) {
	var rows []struct {
		UserID   int64 `db:"user_id"`
		NumWarns int   `db:"num_warns"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT user_id, num_warns FROM warns WHERE chat_id = ?`), chatID); err != nil {
		return nil, fmt.Errorf("chat warns: %w", err)
	}
	out := make(map[int64]int, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.NumWarns
	}
	return out, nil
}

func (s *Store) Settings(ctx context.Context, chatID int64) (warns.Settings, error) {
	var row struct {
		Limit    int  `db:"warn_limit"`
		SoftWarn bool `db:"soft_warn"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT warn_limit, soft_warn FROM warn_settings WHERE chat_id = ?`), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return warns.DefaultSettings(), nil
	}
	if err != nil {
		return warns.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return warns.Settings{Limit: row.Limit, SoftWarn: row.SoftWarn}, nil
}

func (s *Store) SetLimit(ctx context.Context, chatID int64, limit int) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO warn_settings (chat_id, warn_limit) VALUES (?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET warn_limit = excluded.warn_limit`), chatID, limit)
	if err != nil {
		return fmt.Errorf("set limit: %w", err)
	}
	return nil
}

func (s *Store) SetSoftWarn(ctx context.Context, chatID int64, soft bool) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO warn_settings (chat_id, warn_limit, soft_warn) VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET soft_warn = excluded.soft_warn`), chatID, warns.DefaultLimit, soft)
	if err != nil {
		return fmt.Errorf("set soft warn: %w", err)
	}
	return nil
}

func (s *Store) UpsertFilter(ctx context.Context, f warns.Filter) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO warn_filters (chat_id, keyword, reply) VALUES (?, ?, ?)
		ON CONFLICT (chat_id, keyword) DO UPDATE SET reply = excluded.reply`), f.ChatID, f.Keyword, f.Reply)
	if err != nil {
		return fmt.Errorf("upsert filter: %w", err)
	}
	return nil
}

func (s *Store) RemoveFilter(ctx context.Context, chatID int64, keyword string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM warn_filters WHERE chat_id = ? AND keyword = ?`), chatID, keyword)
	if err != nil {
		return false, fmt.Errorf("remove filter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove filter: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Filters(ctx context.Context, chatID int64) ([]warns.Filter, error) {
	var out []warns.Filter
	var rows []struct {
		ChatID  int64  `db:"chat_id"`
		Keyword string `db:"keyword"`
		Reply   string `db:"reply"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT chat_id, keyword, reply FROM warn_filters WHERE chat_id = ? ORDER BY keyword`), chatID); err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	for _, r := range rows {
		out = append(out, warns.Filter{ChatID: r.ChatID, Keyword: r.Keyword, Reply: r.Reply})
	}
	return out, nil
}

func (s *Store) CountFilters(ctx context.Context, chatID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(
		`SELECT COUNT(*) FROM warn_filters WHERE chat_id = ?`), chatID); err != nil {
		return 0, fmt.Errorf("count filters: %w", err)
	}
	return n, nil
}

var migrateTables = []string{"warns", "warn_reasons", "warn_settings", "warn_filters"}

func (s *Store) MigrateChat(ctx context.Context, oldChatID, newChatID int64) error {
	return s.withTx(ctx, "migrate chat", func(tx *sqlx.Tx) error {
		for _, table := range migrateTables {
			if _, err := tx.ExecContext(ctx, tx.Rebind(
				`UPDATE `+table+` SET chat_id = ? WHERE chat_id = ?`), newChatID, oldChatID); err != nil {
				return fmt.Errorf("%s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) Stats(ctx context.Context) (warns.Stats, error) {
	var st warns.Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COALESCE(SUM(num_warns), 0) FROM warns) AS warns,
			(SELECT COUNT(DISTINCT chat_id) FROM warns WHERE num_warns > 0) AS warn_chats,
			(SELECT COUNT(*) FROM warn_filters) AS filters,
			(SELECT COUNT(DISTINCT chat_id) FROM warn_filters) AS filter_chats`)
	if err != nil {
		return warns.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
