package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voiceagent-dashboard/internal/airtable"
	"voiceagent-dashboard/internal/crm"
	"voiceagent-dashboard/internal/phone"
	"voiceagent-dashboard/pkg/logger"
)

// Skip reasons reported per record. Database errors append the underlying
// message.
const (
	reasonMissingPhone = "Missing phone number"
	reasonInvalidPhone = "Invalid phone format"
)

// Store is the slice of the customer repository a sync run needs.
type Store interface {
	FindCustomerByExternalIDOrPhone(ctx context.Context, userID, externalID, phoneNumber string) (crm.Customer, error)
	InsertCustomer(ctx context.Context, c crm.Customer) error
	UpdateCustomerContact(ctx context.Context, userID, id, name, email, externalID string, at time.Time) error
}

// Feed lists the external contact records to reconcile against.
type Feed interface {
	ListAll(ctx context.Context) ([]airtable.Record, error)
}

// ActivityLog records that a sync ran. Optional.
type ActivityLog interface {
	LogSyncRun(ctx context.Context, userID, message, metadata string) error
}

// SkippedRecord explains why one feed record produced no store write.
type SkippedRecord struct {
	ExternalID string `json:"airtable_id"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Reason     string `json:"reason"`
}

// Result summarizes a sync run. Total covers every feed record, including
// skipped ones.
type Result struct {
	Total          int             `json:"total"`
	Created        int             `json:"created"`
	Updated        int             `json:"updated"`
	Skipped        int             `json:"skipped"`
	SkippedRecords []SkippedRecord `json:"skipped_records,omitempty"`
}

// Reconciler folds the external contact feed into the customer store.
// Runs are idempotent: replaying the same feed updates rows in place and
// never duplicates them.
type Reconciler struct {
	store    Store
	activity ActivityLog
	clock    func() time.Time
}

func New(store Store) *Reconciler {
	return &Reconciler{store: store, clock: time.Now}
}

func (r *Reconciler) WithActivity(a ActivityLog) *Reconciler {
	r.activity = a
	return r
}

// Run processes every feed record for one user. Per-record failures are
// recorded as skips; only a feed listing failure aborts the run.
func (r *Reconciler) Run(ctx context.Context, userID string, feed Feed) (Result, error) {
	records, err := feed.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list contact feed: %w", err)
	}

	res := Result{Total: len(records)}
	for _, rec := range records {
		r.apply(ctx, userID, rec, &res)
	}

	if r.activity != nil {
		meta, _ := json.Marshal(res)
		msg := fmt.Sprintf("Contact sync: %d created, %d updated, %d skipped of %d",
			res.Created, res.Updated, res.Skipped, res.Total)
		if err := r.activity.LogSyncRun(ctx, userID, msg, string(meta)); err != nil {
			logger.From(ctx).Warn("activity log failed", "error", err)
		}
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, userID string, rec airtable.Record, res *Result) {
	rawPhone := rec.Fields.PhoneNumber
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		reason := reasonInvalidPhone
		if rawPhone == "" {
			reason = reasonMissingPhone
		}
		r.skip(res, rec, reason)
		return
	}

	now := r.clock().UTC()
	existing, err := r.store.FindCustomerByExternalIDOrPhone(ctx, userID, rec.ID, normalized)
	switch {
	case err == nil:
		// Contact fields only. Phone and status belong to the store,
		// not the feed.
		err = r.store.UpdateCustomerContact(ctx, userID, existing.ID,
			rec.Fields.CustomerName, rec.Fields.CustomerEmail, rec.ID, now)
		if err != nil {
			r.skip(res, rec, "Database error: "+err.Error())
			return
		}
		res.Updated++
	case errors.Is(err, crm.ErrNotFound):
		c := crm.Customer{
			ID:               uuid.NewString(),
			UserID:           userID,
			PhoneNumber:      normalized,
			Name:             rec.Fields.CustomerName,
			Email:            rec.Fields.CustomerEmail,
			Status:           crm.StatusActive,
			AirtableRecordID: rec.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := r.store.InsertCustomer(ctx, c); err != nil {
			r.skip(res, rec, "Database error: "+err.Error())
			return
		}
		res.Created++
	default:
		r.skip(res, rec, "Database error: "+err.Error())
	}
}

func (r *Reconciler) skip(res *Result, rec airtable.Record, reason string) {
	res.Skipped++
	res.SkippedRecords = append(res.SkippedRecords, SkippedRecord{
		ExternalID: rec.ID,
		Name:       rec.Fields.CustomerName,
		Phone:      rec.Fields.PhoneNumber,
		Reason:     reason,
	})
}
