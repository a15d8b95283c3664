package contacts

import (
	"maps"
	"slices"
)

// Selection is a set of contact ids. It is not tied to list membership:
// ids may outlive the records they point at.
type Selection struct {
	ids map[int64]struct{}
}

// Toggle adds id when absent and removes it when present. It reports
// whether id is selected afterwards.
func (s *Selection) Toggle(id int64) bool {
	if s.ids == nil {
		s.ids = make(map[int64]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is selected.
func (s Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Clear empties the set.
func (s *Selection) Clear() { s.ids = nil }

// Len is the number of selected ids.
func (s Selection) Len() int { return len(s.ids) }

// Any reports whether at least one id is selected.
func (s Selection) Any() bool { return len(s.ids) > 0 }

// IDs returns the selected ids in ascending order.
func (s Selection) IDs() []int64 {
	return slices.Sorted(maps.Keys(s.ids))
}

// ToggleSelect flips id in the active-list selection.
func (s *Store) ToggleSelect(id int64) bool {
	s.mu.Lock()
	defer s.unlock()
	return s.selected.Toggle(id)
}

// ClearSelection empties the active-list selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.unlock()
	s.selected.Clear()
}

// IsSelected reports whether id is selected in the active list.
func (s *Store) IsSelected(id int64) bool {
	s.mu.Lock()
	defer s.unlock()
	return s.selected.Has(id)
}

// SelectedIDs returns the active-list selection.
func (s *Store) SelectedIDs() []int64 {
	s.mu.Lock()
	defer s.unlock()
	return s.selected.IDs()
}

// SelectedCount is the size of the active-list selection.
func (s *Store) SelectedCount() int {
	s.mu.Lock()
	defer s.unlock()
	return s.selected.Len()
}

// HasSelected reports whether the active-list selection is non-empty.
func (s *Store) HasSelected() bool { return s.SelectedCount() > 0 }

// ToggleTrashSelect flips id in the trash selection.
func (s *Store) ToggleTrashSelect(id int64) bool {
	s.mu.Lock()
	defer s.unlock()
	return s.trashSel.Toggle(id)
}

// ClearTrashSelection empties the trash selection.
func (s *Store) ClearTrashSelection() {
	s.mu.Lock()
	defer s.unlock()
	s.trashSel.Clear()
}

// IsTrashSelected reports whether id is selected in the trash.
func (s *Store) IsTrashSelected(id int64) bool {
	s.mu.Lock()
	defer s.unlock()
	return s.trashSel.Has(id)
}

// TrashSelectedIDs returns the trash selection.
func (s *Store) TrashSelectedIDs() []int64 {
	s.mu.Lock()
	defer s.unlock()
	return s.trashSel.IDs()
}

// TrashSelectedCount is the size of the trash selection.
func (s *Store) TrashSelectedCount() int {
	s.mu.Lock()
	defer s.unlock()
	return s.trashSel.Len()
}

// HasTrashSelected reports whether the trash selection is non-empty.
func (s *Store) HasTrashSelected() bool { return s.TrashSelectedCount() > 0 }
