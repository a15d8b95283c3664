package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Error is a rejection reported by the server.
type Error struct {
	Status  int    // HTTP status; 0 when the envelope said no on a 2xx
	Message string // message from the error payload, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("remote: status %d", e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 rejection.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Message extracts the human readable message carried by err, or fallback
// when the server sent none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
