package contacts

import (
	"strings"

	"github.com/Makepad-fr/rolodex/internal/model"
)

// Filter returns the contacts matching query on any searchable field,
// ignoring case. A blank query returns list unchanged.
func Filter(list []model.Contact, query string) []model.Contact {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := make([]model.Contact, 0, len(list))
	for _, c := range list {
		if matches(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c model.Contact, lowerQuery string) bool {
	for _, f := range model.SearchFields {
		if strings.Contains(strings.ToLower(c.Text(f)), lowerQuery) {
			return true
		}
	}
	return false
}
