package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent-dashboard/internal/airtable"
	"voiceagent-dashboard/internal/crm"
)

type staticFeed []airtable.Record

func (f staticFeed) ListAll(ctx context.Context) ([]airtable.Record, error) { return f, nil }

type failingFeed struct{ err error }

func (f failingFeed) ListAll(ctx context.Context) ([]airtable.Record, error) { return nil, f.err }

func record(id, name, phone, email string) airtable.Record {
	return airtable.Record{
		ID: id,
		Fields: airtable.Fields{
			CustomerName:  name,
			PhoneNumber:   phone,
			CustomerEmail: email,
		},
	}
}

func TestRunCreatesCustomers(t *testing.T) {
	repo := crm.NewMemoryRepo()
	r := New(repo)

	feed := staticFeed{
		record("rec1", "Alice", "(202) 555-0147", "alice@example.com"),
		record("rec2", "Bob", "12025550163", ""),
	}
	res, err := r.Run(context.Background(), "user-1", feed)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 2 || res.Created != 2 || res.Updated != 0 || res.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := repo.FindCustomerByExternalIDOrPhone(context.Background(), "user-1", "rec1", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PhoneNumber != "+12025550147" {
		t.Fatalf("phone = %q, want +12025550147", got.PhoneNumber)
	}
	if got.Name != "Alice" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected contact fields: %+v", got)
	}
	if got.Status != crm.StatusActive {
		t.Fatalf("status = %q, want active", got.Status)
	}
}

func TestRunSkipReasons(t *testing.T) {
	repo := crm.NewMemoryRepo()
	r := New(repo)

	feed := staticFeed{
		record("rec1", "NoPhone", "", ""),
		record("rec2", "ShortPhone", "555-0147", ""),
	}
	res, err := r.Run(context.Background(), "user-1", feed)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped != 2 || res.Created != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.SkippedRecords[0].Reason != "Missing phone number" {
		t.Fatalf("reason[0] = %q", res.SkippedRecords[0].Reason)
	}
	if res.SkippedRecords[1].Reason != "Invalid phone format" {
		t.Fatalf("reason[1] = %q", res.SkippedRecords[1].Reason)
	}
	if res.SkippedRecords[1].Phone != "555-0147" {
		t.Fatalf("skipped phone = %q, want raw input", res.SkippedRecords[1].Phone)
	}
}

func TestRunIdempotentReplay(t *testing.T) {
	repo := crm.NewMemoryRepo()
	r := New(repo)
	ctx := context.Background()

	feed := staticFeed{record("rec1", "Alice", "2025550147", "alice@example.com")}
	if _, err := r.Run(ctx, "user-1", feed); err != nil {
		t.Fatalf("first run: %v", err)
	}

	feed = staticFeed{record("rec1", "Alice Updated", "2025550147", "alice.new@example.com")}
	res, err := r.Run(ctx, "user-1", feed)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Created != 0 || res.Updated != 1 {
		t.Fatalf("replay result: %+v", res)
	}

	customers := repo.Customers()
	if len(customers) != 1 {
		t.Fatalf("got %d customers, want 1", len(customers))
	}
	got := customers[0]
	if got.Name != "Alice Updated" || got.Email != "alice.new@example.com" {
		t.Fatalf("contact fields not updated: %+v", got)
	}
	if got.PhoneNumber != "+12025550147" {
		t.Fatalf("phone drifted on resync: %q", got.PhoneNumber)
	}
}

func TestRunAdoptsExistingByPhone(t *testing.T) {
	repo := crm.NewMemoryRepo()
	ctx := context.Background()

	manual := crm.Customer{
		ID:          "cust-1",
		UserID:      "user-1",
		PhoneNumber: "+12025550147",
		Name:        "Manual Entry",
		Status:      crm.StatusBlocked,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := repo.InsertCustomer(ctx, manual); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := New(repo)
	feed := staticFeed{record("rec1", "Feed Name", "2025550147", "feed@example.com")}
	res, err := r.Run(ctx, "user-1", feed)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Updated != 1 || res.Created != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := repo.GetCustomer(ctx, "user-1", "cust-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AirtableRecordID != "rec1" {
		t.Fatalf("external id not adopted: %+v", got)
	}
	if got.Status != crm.StatusBlocked {
		t.Fatalf("status overwritten by resync: %q", got.Status)
	}
}

// insertFailStore fails inserts for one phone number; everything else
// passes through to the in-memory repo.
type insertFailStore struct {
	*crm.MemoryRepo
	failPhone string
}

func (s *insertFailStore) InsertCustomer(ctx context.Context, c crm.Customer) error {
	if c.PhoneNumber == s.failPhone {
		return errors.New("connection reset by peer")
	}
	return s.MemoryRepo.InsertCustomer(ctx, c)
}

func TestRunStoreFailureSkipsAndContinues(t *testing.T) {
	store := &insertFailStore{MemoryRepo: crm.NewMemoryRepo(), failPhone: "+12025550147"}
	r := New(store)

	feed := staticFeed{
		record("rec1", "Broken", "2025550147", ""),
		record("rec2", "Fine", "2025550163", ""),
	}
	res, err := r.Run(context.Background(), "user-1", feed)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 2 || res.Created != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := res.SkippedRecords[0].Reason; got != "Database error: connection reset by peer" {
		t.Fatalf("skip reason = %q", got)
	}
	if res.SkippedRecords[0].ExternalID != "rec1" {
		t.Fatalf("skipped record = %+v, want rec1", res.SkippedRecords[0])
	}

	// the failure did not stop the later record
	if _, err := store.FindCustomerByExternalIDOrPhone(context.Background(), "user-1", "rec2", ""); err != nil {
		t.Fatalf("rec2 not created: %v", err)
	}
}

func TestRunFeedFailureAborts(t *testing.T) {
	r := New(crm.NewMemoryRepo())
	wantErr := errors.New("boom")
	if _, err := r.Run(context.Background(), "user-1", failingFeed{err: wantErr}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

type captureActivity struct {
	userID, message, metadata string
	calls                     int
}

func (c *captureActivity) LogSyncRun(ctx context.Context, userID, message, metadata string) error {
	c.calls++
	c.userID, c.message, c.metadata = userID, message, metadata
	return nil
}

func TestRunLogsActivity(t *testing.T) {
	act := &captureActivity{}
	r := New(crm.NewMemoryRepo()).WithActivity(act)

	feed := staticFeed{
		record("rec1", "Alice", "2025550147", ""),
		record("rec2", "NoPhone", "", ""),
	}
	if _, err := r.Run(context.Background(), "user-1", feed); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if act.calls != 1 || act.userID != "user-1" {
		t.Fatalf("activity not logged: %+v", act)
	}
	if act.message != "Contact sync: 1 created, 0 updated, 1 skipped of 2" {
		t.Fatalf("message = %q", act.message)
	}
}
