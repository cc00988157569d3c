package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/feedwatchdog/admin/ports"
)

// DefaultProfile is used when no profile name is given.
const DefaultProfile = "default"

// TokenStore implements ports.TokenStore using SQLite. Values are scoped by
// profile so one database can hold sessions for several API servers.
type TokenStore struct {
	db      *DB
	profile string
}

// NewTokenStore creates a new SQLite token store for a profile.
func NewTokenStore(db *DB, profile string) *TokenStore {
	if profile == "" {
		profile = DefaultProfile
	}
	return &TokenStore{db: db, profile: profile}
}

// Get returns the value for key, or "" when it is not set.
func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE profile = ? AND key = ?`,
		s.profile, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value.
func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_storage (profile, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.profile, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value.
func (s *TokenStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE profile = ? AND key = ?`,
		s.profile, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Profiles lists the profiles that hold at least one value.
func (s *TokenStore) Profiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT profile FROM client_storage ORDER BY profile`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Ensure interface compliance.
var _ ports.TokenStore = (*TokenStore)(nil)
