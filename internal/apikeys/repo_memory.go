package apikeys

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Keys
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Keys)}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Keys, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.rows[userID]
	if !ok {
		return Keys{}, ErrNotFound
	}
	return k, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, k Keys) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[k.UserID] = k
	return nil
}
