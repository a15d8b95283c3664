// Package sqlitestore keeps the contact snapshot in a SQLite file, one row
// per bucket.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/model"
)

// DefaultFileName is used inside the cache directory when no path is given.
const DefaultFileName = "contacts.db"

const (
	bucketContacts = "contacts"
	bucketTrash    = "trash"
	bucketSettings = "settings"
)

type settings struct {
	Query     string            `json:"query,omitempty"`
	View      contacts.ViewMode `json:"view,omitempty"`
	SortField model.Field       `json:"sortField,omitempty"`
}

// Store persists snapshots to a single table of JSON blobs.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates the database file and table if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultFileName
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Load reads every bucket. Missing buckets leave their part of the
// snapshot empty.
func (s *Store) Load(ctx context.Context) (contacts.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM cache`)
	if err != nil {
		return contacts.Snapshot{}, fmt.Errorf("select cache: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		snap contacts.Snapshot
		set  settings
	)
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return contacts.Snapshot{}, fmt.Errorf("scan: %w", err)
		}
		var target any
		switch bucket {
		case bucketContacts:
			target = &snap.Contacts
		case bucketTrash:
			target = &snap.Trash
		case bucketSettings:
			target = &set
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return contacts.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return contacts.Snapshot{}, fmt.Errorf("rows: %w", err)
	}
	snap.Query, snap.View, snap.SortField = set.Query, set.View, set.SortField
	return snap, nil
}

// Save writes all buckets in one transaction.
func (s *Store) Save(ctx context.Context, snap contacts.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	buckets := []struct {
		name  string
		value any
	}{
		{bucketContacts, snap.Contacts},
		{bucketTrash, snap.Trash},
		{bucketSettings, settings{Query: snap.Query, View: snap.View, SortField: snap.SortField}},
	}
	for _, b := range buckets {
		data, err := json.Marshal(b.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", b.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO cache(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, data); err != nil {
			return fmt.Errorf("upsert %s: %w", b.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
