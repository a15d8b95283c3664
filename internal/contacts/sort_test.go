package contacts

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/Makepad-fr/rolodex/internal/model"
)

func names(list []model.Contact) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.FirstName)
	}
	return out
}

func TestSortByFirstName(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(1, "Zoe"), contact(2, "alice"), contact(3, "Bob")))
	if err := s.Sort(model.FieldFirstName); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if got := names(s.Contacts()); !slices.Equal(got, []string{"alice", "Bob", "Zoe"}) {
		t.Fatalf("order = %v", got)
	}
	if s.SortField() != model.FieldFirstName {
		t.Fatalf("sort field = %q", s.SortField())
	}
}

func TestSortByCreatedAt(t *testing.T) {
	newer := contact(1, "Newer")
	newer.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	older := contact(2, "Older")
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	missing := contact(3, "Missing")
	missing.CreatedAt = time.Time{}

	s := seeded(t, newFakeRemote(newer, older, missing))
	if err := s.Sort(model.FieldCreatedAt); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if got := names(s.Contacts()); !slices.Equal(got, []string{"Missing", "Older", "Newer"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestSortIsStable(t *testing.T) {
	list := []model.Contact{contact(1, "A"), contact(2, "B"), contact(3, "C")}
	list[1].Company = ""
	SortContacts(list, model.FieldCompany)
	// The blank company sorts first, the two Acme Corp rows keep their order.
	if got := ids(list); !slices.Equal(got, []int64{2, 1, 3}) {
		t.Fatalf("order = %v", got)
	}
}

func TestSortRejectsUnknownField(t *testing.T) {
	s := seeded(t, newFakeRemote(contact(2, "B"), contact(1, "A")))
	before := s.Version()
	for _, f := range []model.Field{"nickname", model.FieldNotes} {
		if err := s.Sort(f); !errors.Is(err, ErrUnknownField) {
			t.Fatalf("Sort(%q) err = %v", f, err)
		}
	}
	if s.Version() != before {
		t.Fatalf("rejected sort changed the store")
	}
	if got := ids(s.Contacts()); !slices.Equal(got, []int64{2, 1}) {
		t.Fatalf("order = %v", got)
	}
}
