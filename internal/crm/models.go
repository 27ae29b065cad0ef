package crm

import "time"

// Customer is a per-user contact record.
//
// Invariants:
// - UserID is required on every row; all reads and writes are user-scoped.
// - PhoneNumber is canonical E.164 and unique per user (enforced by a
//   UNIQUE (user_id, phone_number) index).
//
// Storage (Postgres): table customers. Tags and external_data are JSONB.
type Customer struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Name    string `json:"name,omitempty" db:"name"`
	Email   string `json:"email,omitempty" db:"email"`
	Company string `json:"company,omitempty" db:"company"`

	Tags []string `json:"tags,omitempty" db:"tags"`

	Status CustomerStatus `json:"status" db:"status"`

	// AirtableRecordID joins this row to the external contact feed.
	AirtableRecordID string `json:"airtable_record_id,omitempty" db:"airtable_record_id"`

	// ExternalData holds the raw external payload for diagnostics.
	ExternalData map[string]any `json:"external_data,omitempty" db:"external_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CustomerStatus string

const (
	StatusActive   CustomerStatus = "active"
	StatusInactive CustomerStatus = "inactive"
	StatusBlocked  CustomerStatus = "blocked"
)

func IsValidStatus(s string) bool {
	switch CustomerStatus(s) {
	case StatusActive, StatusInactive, StatusBlocked:
		return true
	default:
		return false
	}
}

// Note is a free-text annotation attached to a Customer.
//
// Invariant: CustomerID must reference a customer owned by the same user.
// Notes are deleted when their customer is deleted.
type Note struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	CustomerID string `json:"customer_id" db:"customer_id"`

	// CallID optionally links the note to the originating voice call.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`

	Priority NotePriority `json:"priority" db:"priority"`

	Tags []string `json:"tags,omitempty" db:"tags"`

	IsPinned bool `json:"is_pinned" db:"is_pinned"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NotePriority string

const (
	PriorityLow    NotePriority = "low"
	PriorityMedium NotePriority = "medium"
	PriorityHigh   NotePriority = "high"
)

func IsValidPriority(p string) bool {
	switch NotePriority(p) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}
