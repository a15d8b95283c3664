package contacts

import (
	"slices"

	"github.com/Makepad-fr/rolodex/internal/model"
)

// projection memoizes the filtered active list for one store version and
// query.
type projection struct {
	valid   bool
	version uint64
	query   string
	rows    []model.Contact
}

// Filtered returns the active contacts matching the search query. The
// result is recomputed only when the store version or the query changed.
func (s *Store) Filtered() []model.Contact {
	s.mu.Lock()
	defer s.unlock()
	if !s.memo.valid || s.memo.version != s.version || s.memo.query != s.query {
		s.memo = projection{
			valid:   true,
			version: s.version,
			query:   s.query,
			rows:    slices.Clone(Filter(s.active, s.query)),
		}
	}
	return slices.Clone(s.memo.rows)
}

// FilteredCount is len(Filtered()) without the copy.
func (s *Store) FilteredCount() int {
	s.mu.Lock()
	defer s.unlock()
	if s.memo.valid && s.memo.version == s.version && s.memo.query == s.query {
		return len(s.memo.rows)
	}
	return len(Filter(s.active, s.query))
}
