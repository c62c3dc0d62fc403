package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pavelanni/proctor/internal/draft"
)

var _ draft.Store = (*Store)(nil)

// Get returns the draft stored under key, or draft.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (draft.Record, error) {
	var rec draft.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT key, text, digest, saved_at FROM drafts WHERE key = ?`, key,
	).Scan(&rec.Key, &rec.Text, &rec.Digest, &rec.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return draft.Record{}, draft.ErrNotFound
	}
	return rec, err
}

// Put inserts or overwrites a draft.
func (s *Store) Put(ctx context.Context, rec draft.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (key, text, digest, saved_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET text = ?, digest = ?, saved_at = ?`,
		rec.Key, rec.Text, rec.Digest, rec.SavedAt, rec.Text, rec.Digest, rec.SavedAt,
	)
	return err
}

// Delete removes a draft. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key)
	return err
}

// List returns all drafts ordered by key.
func (s *Store) List(ctx context.Context) ([]draft.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, text, digest, saved_at FROM drafts ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []draft.Record
	for rows.Next() {
		var rec draft.Record
		if err := rows.Scan(&rec.Key, &rec.Text, &rec.Digest, &rec.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
