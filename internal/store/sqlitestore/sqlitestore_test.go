package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/model"
)

func open(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEmptyDatabaseLoadsEmptySnapshot(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), DefaultFileName))
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Contacts) != 0 || snap.Query != "" {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestSaveSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	ctx := context.Background()

	first := open(t, path)
	if err := first.Save(ctx, contacts.Snapshot{
		Contacts: []model.Contact{{ID: 1, FirstName: "Alice"}},
		Query:    "old",
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A second save overwrites every bucket.
	if err := first.Save(ctx, contacts.Snapshot{
		Contacts:  []model.Contact{{ID: 1, FirstName: "Alice"}, {ID: 2, FirstName: "Bob"}},
		Trash:     []model.Contact{{ID: 3, InTrash: true}},
		Query:     "bo",
		View:      contacts.ViewSmall,
		SortField: model.FieldEmail,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = first.Close()

	snap, err := open(t, path).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Contacts) != 2 || snap.Contacts[1].FirstName != "Bob" {
		t.Fatalf("contacts = %+v", snap.Contacts)
	}
	if len(snap.Trash) != 1 || snap.Trash[0].ID != 3 {
		t.Fatalf("trash = %+v", snap.Trash)
	}
	if snap.Query != "bo" || snap.View != contacts.ViewSmall || snap.SortField != model.FieldEmail {
		t.Fatalf("settings = %+v", snap)
	}
}

func TestStoreHydratesContactsStore(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), DefaultFileName))
	if err := s.Save(ctx, contacts.Snapshot{Contacts: []model.Contact{{ID: 5, FirstName: "Eve"}}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cs := contacts.New(nil, contacts.WithPersister(s))
	if err := cs.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if c, ok := cs.Find(5); !ok || c.FirstName != "Eve" {
		t.Fatalf("hydrated store missing contact")
	}
}
