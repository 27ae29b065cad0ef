package crm

import (
	"context"
	"time"
)

// CustomerFilter narrows customer listings. Search matches name, phone
// number, or email (case-insensitive substring).
type CustomerFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

// NoteFilter narrows note listings.
type NoteFilter struct {
	CustomerID string
	Search     string
	Limit      int
}

// Repository is the persistence contract for the CRM store.
//
// Every method is implicitly scoped by userID; implementations must never
// return or touch rows owned by another user. "Not found" surfaces as
// ErrNotFound, distinguishable from generic store errors.
type Repository interface {
	ListCustomers(ctx context.Context, userID string, f CustomerFilter) ([]Customer, int, error)
	GetCustomer(ctx context.Context, userID, id string) (Customer, error)
	FindCustomerByPhone(ctx context.Context, userID, phoneNumber, excludeID string) (Customer, error)

	// FindCustomerByExternalIDOrPhone matches on airtable_record_id OR
	// phone_number; either criterion suffices. When both would match
	// different rows the external-id condition is checked first and its
	// row wins (see the reconciler for the resync consequences).
	FindCustomerByExternalIDOrPhone(ctx context.Context, userID, externalID, phoneNumber string) (Customer, error)

	InsertCustomer(ctx context.Context, c Customer) error
	UpdateCustomer(ctx context.Context, c Customer) error

	// UpdateCustomerContact rewrites only the fields a contact-feed resync
	// owns. Phone number and status are intentionally untouched: phone is
	// the stable join key and must not drift via resync.
	UpdateCustomerContact(ctx context.Context, userID, id, name, email, externalID string, at time.Time) error

	// DeleteCustomer removes the customer and cascades to its notes.
	DeleteCustomer(ctx context.Context, userID, id string) error

	ListNotes(ctx context.Context, userID string, f NoteFilter) ([]Note, error)
	GetNote(ctx context.Context, userID, id string) (Note, error)
	InsertNote(ctx context.Context, n Note) error
	UpdateNote(ctx context.Context, n Note) error
	DeleteNote(ctx context.Context, userID, id string) error
}
