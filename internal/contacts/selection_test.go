package contacts

import (
	"slices"
	"testing"
)

func TestToggleSelectTwiceRestoresSelection(t *testing.T) {
	s := seeded(t, fourContacts())
	if !s.ToggleSelect(1) || !s.IsSelected(1) {
		t.Fatalf("first toggle should select")
	}
	if s.ToggleSelect(1) || s.IsSelected(1) {
		t.Fatalf("second toggle should deselect")
	}
	if s.HasSelected() {
		t.Fatalf("selection should be empty")
	}
}

func TestSelectionIDsAreSorted(t *testing.T) {
	s := seeded(t, fourContacts())
	for _, id := range []int64{3, 1, 4} {
		s.ToggleSelect(id)
	}
	if got := s.SelectedIDs(); !slices.Equal(got, []int64{1, 3, 4}) {
		t.Fatalf("ids = %v", got)
	}
	if s.SelectedCount() != 3 {
		t.Fatalf("count = %d", s.SelectedCount())
	}
	s.ClearSelection()
	if s.SelectedCount() != 0 || len(s.SelectedIDs()) != 0 {
		t.Fatalf("clear left ids behind")
	}
}

func TestTrashSelectionIsIndependent(t *testing.T) {
	s := seeded(t, fourContacts())
	s.ToggleSelect(1)
	s.ToggleTrashSelect(2)

	if s.IsTrashSelected(1) || s.IsSelected(2) {
		t.Fatalf("selections leaked into each other")
	}
	s.ClearSelection()
	if !s.HasTrashSelected() || s.TrashSelectedCount() != 1 {
		t.Fatalf("clearing the active selection touched the trash selection")
	}
	s.ClearTrashSelection()
	if s.HasTrashSelected() {
		t.Fatalf("trash selection not cleared")
	}
}

func TestSelectionOutlivesRecords(t *testing.T) {
	var sel Selection
	sel.Toggle(42)
	if !sel.Has(42) || !sel.Any() || sel.Len() != 1 {
		t.Fatalf("unexpected selection state")
	}
	sel.Clear()
	if sel.Has(42) || sel.Any() {
		t.Fatalf("clear failed")
	}
}
