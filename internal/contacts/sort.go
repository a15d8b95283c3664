package contacts

import (
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Makepad-fr/rolodex/internal/model"
)

// Sort reorders the active list in place by field. Equal keys keep their
// relative order.
func (s *Store) Sort(field model.Field) error {
	if !slices.Contains(model.SortFields, field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	s.mu.Lock()
	defer s.unlock()
	SortContacts(s.active, field)
	s.sortField = field
	s.changedLocked()
	return nil
}

// SortField returns the field of the last Sort, or "" when the list is in
// server order.
func (s *Store) SortField() model.Field {
	s.mu.Lock()
	defer s.unlock()
	return s.sortField
}

// SortContacts stably sorts list by field. Dates compare by instant with
// missing dates first; text compares case-insensitively with missing
// values as the empty string.
func SortContacts(list []model.Contact, field model.Field) {
	if field.IsDate() {
		slices.SortStableFunc(list, func(a, b model.Contact) int {
			return a.Time(field).Compare(b.Time(field))
		})
		return
	}
	// A Collator keeps scratch buffers, so each sort gets its own.
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(list, func(a, b model.Contact) int {
		return col.CompareString(a.Text(field), b.Text(field))
	})
}
