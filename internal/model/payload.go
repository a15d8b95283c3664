package model

import "fmt"

// Payload is a partial set of contact attributes sent on create and patch.
// Nil fields are left out of the request body.
type Payload struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Company     *string `json:"company,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// Set assigns value to the named field. Dates are server-owned and rejected.
func (p *Payload) Set(f Field, value string) error {
	v := value
	switch f {
	case FieldFirstName:
		p.FirstName = &v
	case FieldLastName:
		p.LastName = &v
	case FieldEmail:
		p.Email = &v
	case FieldPhoneNumber:
		p.PhoneNumber = &v
	case FieldCompany:
		p.Company = &v
	case FieldNotes:
		p.Notes = &v
	default:
		return fmt.Errorf("field %q is read-only", f)
	}
	return nil
}

// Empty reports whether no field is set.
func (p Payload) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.PhoneNumber == nil && p.Company == nil && p.Notes == nil
}
