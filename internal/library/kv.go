package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetValue reads a key from the local key/value table. ok is false when the
// key has never been set.
func (s *Store) GetValue(ctx context.Context, key string) (value string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get value %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue writes a key to the local key/value table.
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set value %s: %w", key, err)
	}
	return nil
}
