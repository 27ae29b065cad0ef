package activity

import "time"

// Event is an immutable, append-only activity record.
//
// Invariants:
// - Events are never updated or deleted.
// - user_id is required; activity is private to its user.
// - Recording is best-effort; do not block business flows on activity failures.
//
// Storage recommendation (Postgres):
// - Table activity_events with an INSERT-only policy.
// - Optional: partition by time for retention.
type Event struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	// Target identifiers (optional, depending on the event type).
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`
	NoteID     string `json:"note_id,omitempty" db:"note_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCustomerCreated EventType = "customer_created"
	EventTypeCustomerUpdated EventType = "customer_updated"
	EventTypeCustomerDeleted EventType = "customer_deleted"
	EventTypeNoteCreated     EventType = "note_created"
	EventTypeNoteDeleted     EventType = "note_deleted"
	EventTypeContactSyncRun  EventType = "contact_sync_run"
	EventTypeAPIKeysUpdated  EventType = "api_keys_updated"
)
