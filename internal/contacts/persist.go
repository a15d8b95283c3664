package contacts

import (
	"context"
	"fmt"
	"slices"

	"github.com/Makepad-fr/rolodex/internal/model"
)

// Snapshot is the part of the store kept across runs. The backup buffer
// and selections are transient and never saved.
type Snapshot struct {
	Contacts  []model.Contact `json:"contacts"`
	Trash     []model.Contact `json:"trash"`
	Query     string          `json:"query,omitempty"`
	View      ViewMode        `json:"view,omitempty"`
	SortField model.Field     `json:"sortField,omitempty"`
}

// Persister is a key-value home for store snapshots.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Hydrate loads the last saved snapshot, if a persister is configured.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	s.mu.Lock()
	defer s.unlock()
	s.active = s.acceptLocked(snap.Contacts)
	s.trash = slices.Clone(snap.Trash)
	s.query = snap.Query
	s.view = ViewList
	if slices.Contains(ViewModes, snap.View) {
		s.view = snap.View
	}
	s.sortField = ""
	if slices.Contains(model.SortFields, snap.SortField) {
		s.sortField = snap.SortField
	}
	s.version++
	s.log.Debug("store hydrated", "contacts", len(s.active), "trash", len(s.trash))
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Contacts:  slices.Clone(s.active),
		Trash:     slices.Clone(s.trash),
		Query:     s.query,
		View:      s.view,
		SortField: s.sortField,
	}
}
