package contacts

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/Makepad-fr/rolodex/internal/model"
)

func TestApplyAdd(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(1, "Alice")))
	s.Apply(model.Event{Type: model.EventAdd, Data: contact(2, "Bob")})
	if got := ids(s.Contacts()); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("ids = %v", got)
	}

	// A repeated ADD replaces rather than duplicates.
	s.Apply(model.Event{Type: model.EventAdd, Data: contact(2, "Robert")})
	if s.Count() != 2 {
		t.Fatalf("count = %d", s.Count())
	}
	if c, _ := s.Find(2); c.FirstName != "Robert" {
		t.Fatalf("record not refreshed: %+v", c)
	}
}

func TestApplyAddForPendingRefreshesBackup(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(1, "Alice")))
	_ = s.Delete(context.Background(), 1, true)

	s.Apply(model.Event{Type: model.EventAdd, Data: contact(1, "Alicia")})
	if s.Contains(1) {
		t.Fatalf("pending delete resurfaced")
	}
	s.UndoDelete(1)
	if c, _ := s.Find(1); c.FirstName != "Alicia" {
		t.Fatalf("undo restored a stale copy: %+v", c)
	}
}

func TestApplyUpdate(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(1, "Alice"), contact(2, "Bob")))
	s.Apply(model.Event{Type: model.EventUpdate, Data: contact(2, "Bobby")})
	if c, _ := s.Find(2); c.FirstName != "Bobby" {
		t.Fatalf("update not applied: %+v", c)
	}
	if got := ids(s.Contacts()); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("position changed: %v", got)
	}

	v := s.Version()
	s.Apply(model.Event{Type: model.EventUpdate, Data: contact(9, "Ghost")})
	if s.Contains(9) || s.Version() != v {
		t.Fatalf("update for unknown id must be a no-op")
	}
}

func TestApplyDelete(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(1, "Alice"), contact(2, "Bob")))
	s.Apply(model.Event{Type: model.EventDelete, Data: model.Contact{ID: 1}})
	if s.Contains(1) {
		t.Fatalf("delete not applied")
	}
	if len(s.Backup()) != 0 {
		t.Fatalf("server delete must bypass the backup buffer")
	}
	if s.UndoDelete(1) {
		t.Fatalf("server delete must not be undoable")
	}

	v := s.Version()
	s.Apply(model.Event{Type: model.EventDelete, Data: model.Contact{ID: 1}})
	if s.Version() != v {
		t.Fatalf("delete for unknown id must be a no-op")
	}
}

func TestApplyUnknownTypeIgnored(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(1, "Alice")))
	v := s.Version()
	s.Apply(model.Event{Type: "MERGE", Data: contact(1, "X")})
	if s.Version() != v {
		t.Fatalf("unknown event changed the store")
	}
}

func TestListenAppliesUntilClosed(t *testing.T) {
	s := New(newFakeRemote())
	events := make(chan model.Event, 3)
	events <- model.Event{Type: model.EventAdd, Data: contact(1, "A")}
	events <- model.Event{Type: model.EventAdd, Data: contact(2, "B")}
	events <- model.Event{Type: model.EventDelete, Data: model.Contact{ID: 1}}
	close(events)

	var seen []model.EventType
	if err := s.Listen(context.Background(), events, func(ev model.Event) { seen = append(seen, ev.Type) }); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if got := ids(s.Contacts()); !slices.Equal(got, []int64{2}) {
		t.Fatalf("ids = %v", got)
	}
	if len(seen) != 3 {
		t.Fatalf("after ran %d times", len(seen))
	}
}

func TestListenStopsOnCancel(t *testing.T) {
	s := New(newFakeRemote())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, make(chan model.Event), nil) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listen did not return")
	}
}
