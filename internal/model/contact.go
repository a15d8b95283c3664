package model

import (
	"fmt"
	"strings"
	"time"
)

// Contact is the domain model for an address book entry.
// ID is assigned by the server and is the only identity; everything else is
// a mutable attribute.
type Contact struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Company     string    `json:"company"`
	Notes       string    `json:"notes,omitempty"`
	InTrash     bool      `json:"inTrash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FullName joins first and last name, skipping empty parts.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Field names an attribute of a Contact by its wire name.
type Field string

const (
	FieldFirstName   Field = "firstName"
	FieldLastName    Field = "lastName"
	FieldEmail       Field = "email"
	FieldPhoneNumber Field = "phoneNumber"
	FieldCompany     Field = "company"
	FieldNotes       Field = "notes"
	FieldCreatedAt   Field = "createdAt"
	FieldUpdatedAt   Field = "updatedAt"
)

// SortFields lists the fields a contact list can be ordered by.
var SortFields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhoneNumber,
	FieldCompany,
	FieldCreatedAt,
	FieldUpdatedAt,
}

// SearchFields lists the fields matched by a free text search.
var SearchFields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhoneNumber,
	FieldCompany,
	FieldNotes,
}

// ParseField resolves a wire name (case-insensitive, "first"/"last"/"phone"
// accepted as shorthands) into a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "firstname", "first":
		return FieldFirstName, nil
	case "lastname", "last":
		return FieldLastName, nil
	case "email":
		return FieldEmail, nil
	case "phonenumber", "phone":
		return FieldPhoneNumber, nil
	case "company":
		return FieldCompany, nil
	case "notes":
		return FieldNotes, nil
	case "createdat", "created":
		return FieldCreatedAt, nil
	case "updatedat", "updated":
		return FieldUpdatedAt, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// IsDate reports whether the field holds a timestamp.
func (f Field) IsDate() bool {
	return f == FieldCreatedAt || f == FieldUpdatedAt
}

// Text returns the string value of a text field; date fields return "".
func (c Contact) Text(f Field) string {
	switch f {
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldEmail:
		return c.Email
	case FieldPhoneNumber:
		return c.PhoneNumber
	case FieldCompany:
		return c.Company
	case FieldNotes:
		return c.Notes
	}
	return ""
}

// Time returns the timestamp of a date field; text fields return the zero time.
func (c Contact) Time(f Field) time.Time {
	switch f {
	case FieldCreatedAt:
		return c.CreatedAt
	case FieldUpdatedAt:
		return c.UpdatedAt
	}
	return time.Time{}
}
