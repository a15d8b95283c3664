package contacts

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Makepad-fr/rolodex/internal/model"
)

type memPersister struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int
	err   error
}

func (m *memPersister) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.err
}

func (m *memPersister) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.saves++
	return nil
}

func TestChangesAreSaved(t *testing.T) {
	p := &memPersister{}
	s := seeded(t, newFakeRemote(contact(1, "Alice"), contact(2, "Bob")), WithPersister(p))
	s.SetSearchQuery("bob")
	_ = s.Sort(model.FieldFirstName)
	_ = s.Delete(context.Background(), 1, true)

	if p.saves == 0 {
		t.Fatalf("nothing saved")
	}
	if got := ids(p.snap.Contacts); !slices.Equal(got, []int64{2}) {
		t.Fatalf("saved contacts = %v", got)
	}
	if p.snap.Query != "bob" || p.snap.SortField != model.FieldFirstName {
		t.Fatalf("saved snapshot = %+v", p.snap)
	}
}

func TestHydrateRestoresSnapshot(t *testing.T) {
	p := &memPersister{snap: Snapshot{
		Contacts:  []model.Contact{contact(1, "Alice"), contact(1, "Dup"), contact(2, "Bob")},
		Trash:     []model.Contact{trashed(3, "Gone")},
		Query:     "ali",
		View:      ViewSmall,
		SortField: model.FieldNotes,
	}}
	s := New(newFakeRemote(), WithPersister(p))
	if err := s.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := ids(s.Contacts()); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("contacts = %v", got)
	}
	if s.TrashCount() != 1 || s.SearchQuery() != "ali" || s.View() != ViewSmall {
		t.Fatalf("state not hydrated")
	}
	if s.SortField() != "" {
		t.Fatalf("unsortable field accepted from disk: %q", s.SortField())
	}
}

func TestHydrateViewMode(t *testing.T) {
	tests := []struct {
		saved ViewMode
		want  ViewMode
	}{
		{ViewList, ViewList},
		{ViewGrid, ViewGrid},
		{ViewSmall, ViewSmall},
		{"", ViewList},
		{"tiles", ViewList},
	}
	for _, tt := range tests {
		p := &memPersister{snap: Snapshot{View: tt.saved}}
		s := New(newFakeRemote(), WithPersister(p))
		if err := s.Hydrate(context.Background()); err != nil {
			t.Fatalf("hydrate: %v", err)
		}
		if s.View() != tt.want {
			t.Fatalf("saved %q: view = %q, want %q", tt.saved, s.View(), tt.want)
		}
	}
}

func TestHydrateError(t *testing.T) {
	p := &memPersister{err: errors.New("corrupt")}
	s := New(newFakeRemote(), WithPersister(p))
	if err := s.Hydrate(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := New(newFakeRemote()).Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate without persister: %v", err)
	}
}

// readingPersister reads the store from inside Save, which deadlocks if
// Save is called with the store lock held.
type readingPersister struct {
	memPersister
	store  *Store
	counts []int
}

func (r *readingPersister) Save(ctx context.Context, snap Snapshot) error {
	r.counts = append(r.counts, r.store.Count())
	return r.memPersister.Save(ctx, snap)
}

func TestSaveRunsOutsideStoreLock(t *testing.T) {
	p := &readingPersister{}
	s := New(newFakeRemote(contact(1, "Alice"), contact(2, "Bob")), WithPersister(p))
	p.store = s

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.FetchAll(context.Background())
		s.SetSearchQuery("ali")
		_ = s.Delete(context.Background(), 2, true)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("save blocked on the store lock")
	}

	if len(p.counts) == 0 {
		t.Fatalf("nothing saved")
	}
	if got := p.counts[len(p.counts)-1]; got != 1 {
		t.Fatalf("count seen by last save = %d, want 1", got)
	}
}

func TestConcurrentChangesSaveLatestState(t *testing.T) {
	p := &memPersister{}
	s := New(newFakeRemote(), WithPersister(p))

	queries := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetSearchQuery(q)
		}()
	}
	wg.Wait()
	s.SetSearchQuery("final")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap.Query != "final" {
		t.Fatalf("saved query = %q, want final", p.snap.Query)
	}
	if p.saves > len(queries)+1 {
		t.Fatalf("saves = %d, more than changes", p.saves)
	}
}
