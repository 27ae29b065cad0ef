package crm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory CRM repository for tests and early
// development. It enforces user isolation and the per-user phone
// uniqueness constraint the same way the Postgres schema does.
type MemoryRepo struct {
	mu        sync.Mutex
	customers map[string]Customer // by id
	notes     map[string]Note     // by id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		customers: map[string]Customer{},
		notes:     map[string]Note{},
	}
}

func (r *MemoryRepo) ListCustomers(ctx context.Context, userID string, f CustomerFilter) ([]Customer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]Customer, 0)
	for _, c := range r.customers {
		if c.UserID != userID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		if f.Search != "" && !matchesSearch(f.Search, c.Name, c.PhoneNumber, c.Email) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })

	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return []Customer{}, total, nil
	}
	end := f.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

func (r *MemoryRepo) GetCustomer(ctx context.Context, userID, id string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.UserID != userID {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) FindCustomerByPhone(ctx context.Context, userID, phoneNumber, excludeID string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.UserID == userID && c.PhoneNumber == phoneNumber && c.ID != excludeID {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (r *MemoryRepo) FindCustomerByExternalIDOrPhone(ctx context.Context, userID, externalID, phoneNumber string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var phoneMatch *Customer
	for _, c := range r.customers {
		if c.UserID != userID {
			continue
		}
		if externalID != "" && c.AirtableRecordID == externalID {
			return c, nil
		}
		if c.PhoneNumber == phoneNumber {
			cc := c
			phoneMatch = &cc
		}
	}
	if phoneMatch != nil {
		return *phoneMatch, nil
	}
	return Customer{}, ErrNotFound
}

func (r *MemoryRepo) InsertCustomer(ctx context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.customers {
		if existing.UserID == c.UserID && existing.PhoneNumber == c.PhoneNumber {
			return ErrConflict
		}
	}
	r.customers[c.ID] = c
	return nil
}

func (r *MemoryRepo) UpdateCustomer(ctx context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.customers[c.ID]
	if !ok || existing.UserID != c.UserID {
		return ErrNotFound
	}
	for _, other := range r.customers {
		if other.UserID == c.UserID && other.ID != c.ID && other.PhoneNumber == c.PhoneNumber {
			return ErrConflict
		}
	}
	c.CreatedAt = existing.CreatedAt
	c.AirtableRecordID = existing.AirtableRecordID
	c.ExternalData = existing.ExternalData
	r.customers[c.ID] = c
	return nil
}

func (r *MemoryRepo) UpdateCustomerContact(ctx context.Context, userID, id, name, email, externalID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.Name = name
	c.Email = email
	c.AirtableRecordID = externalID
	c.UpdatedAt = at
	r.customers[id] = c
	return nil
}

func (r *MemoryRepo) DeleteCustomer(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(r.customers, id)
	for nid, n := range r.notes {
		if n.CustomerID == id {
			delete(r.notes, nid)
		}
	}
	return nil
}

func (r *MemoryRepo) ListNotes(ctx context.Context, userID string, f NoteFilter) ([]Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Note, 0)
	for _, n := range r.notes {
		if n.UserID != userID {
			continue
		}
		if f.CustomerID != "" && n.CustomerID != f.CustomerID {
			continue
		}
		if f.Search != "" && !matchesSearch(f.Search, n.Title, n.Content) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) GetNote(ctx context.Context, userID, id string) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return Note{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) InsertNote(ctx context.Context, n Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = n
	return nil
}

func (r *MemoryRepo) UpdateNote(ctx context.Context, n Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.notes[n.ID]
	if !ok || existing.UserID != n.UserID {
		return ErrNotFound
	}
	n.CreatedAt = existing.CreatedAt
	n.CustomerID = existing.CustomerID
	n.CallID = existing.CallID
	r.notes[n.ID] = n
	return nil
}

func (r *MemoryRepo) DeleteNote(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(r.notes, id)
	return nil
}

// Customers returns a snapshot, for test assertions.
func (r *MemoryRepo) Customers() []Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out
}

func matchesSearch(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
