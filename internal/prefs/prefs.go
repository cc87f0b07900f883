// Package prefs persists client-side preferences in the local store.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/wisdomizer/internal/db"
)

// SystemPromptKey is the local storage key for the system prompt.
const SystemPromptKey = "wisdomizer.systemPrompt"

// Store is a key/value view over the local_storage table.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: time.Now}
}

// Get returns the value for key and whether it was set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// SystemPrompt returns the saved system prompt, or "" when none is set.
func (s *Store) SystemPrompt(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, SystemPromptKey)
	return v, err
}

// SetSystemPrompt saves the system prompt. An empty prompt clears it.
func (s *Store) SetSystemPrompt(ctx context.Context, prompt string) error {
	if prompt == "" {
		return s.Delete(ctx, SystemPromptKey)
	}
	return s.Set(ctx, SystemPromptKey, prompt)
}
