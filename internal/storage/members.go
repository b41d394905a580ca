package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/DevTeady/EmiliaHikari/internal/warns"
)

// RecordMember upserts the member; usernames are stored lowercase.
func (s *Store) RecordMember(ctx context.Context, m warns.Member) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO known_users (user_id, username, first_name) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, first_name = excluded.first_name`),
		m.ID, strings.ToLower(strings.TrimPrefix(m.Username, "@")), m.FirstName)
	if err != nil {
		return fmt.Errorf("record member: %w", err)
	}
	return nil
}

func (s *Store) MemberByUsername(ctx context.Context, username string) (warns.Member, bool, error) {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	if username == "" {
		return warns.Member{}, false, nil
	}
	var m warns.Member
	err := s.db.GetContext(ctx, &m, s.db.Rebind(
		`SELECT user_id, username, first_name FROM known_users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return warns.Member{}, false, nil
	}
	if err != nil {
		return warns.Member{}, false, fmt.Errorf("lookup member: %w", err)
	}
	return m, true, nil
}
