package model

import (
	"encoding/json"
	"testing"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"firstName", FieldFirstName},
		{"FIRST", FieldFirstName},
		{"last", FieldLastName},
		{" phone ", FieldPhoneNumber},
		{"createdAt", FieldCreatedAt},
		{"updated", FieldUpdatedAt},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseField(tc.in)
			if err != nil {
				t.Fatalf("ParseField(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseField(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
	if _, err := ParseField("nickname"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestPayloadOmitsUnsetFields(t *testing.T) {
	var p Payload
	if !p.Empty() {
		t.Fatalf("zero payload should be empty")
	}
	if err := p.Set(FieldEmail, "a@b.c"); err != nil {
		t.Fatalf("set email: %v", err)
	}
	if err := p.Set(FieldCreatedAt, "2024-01-01"); err == nil {
		t.Fatalf("expected createdAt to be read-only")
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"email":"a@b.c"}` {
		t.Fatalf("unexpected body %s", b)
	}
}
