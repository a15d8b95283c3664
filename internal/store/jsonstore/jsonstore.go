// Package jsonstore keeps the contact snapshot in a single JSON file.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Makepad-fr/rolodex/internal/contacts"
)

// DefaultFileName is used inside the cache directory when no path is given.
const DefaultFileName = "contacts.json"

// Store reads and writes one snapshot file. Writes go through a temp file
// and a rename so a crash never leaves half a snapshot behind.
type Store struct {
	path string
}

// New returns a store for path. The parent directory is created on Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path is the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load returns the saved snapshot, or an empty one when no file exists yet.
func (s *Store) Load(context.Context) (contacts.Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contacts.Snapshot{}, nil
		}
		return contacts.Snapshot{}, fmt.Errorf("read file: %w", err)
	}
	var snap contacts.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return contacts.Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snap, nil
}

// Save replaces the snapshot file.
func (s *Store) Save(_ context.Context, snap contacts.Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".contacts-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
