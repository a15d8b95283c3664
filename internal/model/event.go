package model

// EventType is the kind of change delivered by the push stream.
type EventType string

const (
	EventAdd    EventType = "ADD"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one push notification about a contact.
type Event struct {
	Type EventType `json:"type"`
	Data Contact   `json:"data"`
}
