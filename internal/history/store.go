// Package history keeps a local record of generated URL templates.
// Credentials are never stored.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jlllyfish/Moose-railway/internal/client"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one recorded generation.
type Entry struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	DocName   string    `json:"doc_name,omitempty"`
	Table     string    `json:"table"`
	Column    string    `json:"column"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists entries in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path and applies
// migrations. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordGeneration stores g. Its signature matches pipeline.GenerationHook.
func (s *Store) RecordGeneration(ctx context.Context, g *client.Generation) error {
	_, err := s.Record(ctx, g)
	return err
}

// Record stores g and returns the new entry.
func (s *Store) Record(ctx context.Context, g *client.Generation) (*Entry, error) {
	if g == nil {
		return nil, errors.New("nil generation")
	}
	e := &Entry{
		ID:        uuid.New().String(),
		DocID:     g.DocID,
		DocName:   g.DocName,
		Table:     g.Table,
		Column:    g.Column,
		URL:       g.URL,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, doc_id, doc_name, table_name, column_name, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DocID, e.DocName, e.Table, e.Column, e.URL, e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record generation: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, doc_name, table_name, column_name, url, created_at
		 FROM generations ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.DocID, &e.DocName, &e.Table, &e.Column, &e.URL, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("invalid timestamp for entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}
