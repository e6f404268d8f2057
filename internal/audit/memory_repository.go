package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	attempts map[string][]Attempt
}

// NewMemoryRepository builds an in-memory attempt log.
func NewMemoryRepository() Repository {
	return &memoryRepository{attempts: make(map[string][]Attempt)}
}

func (r *memoryRepository) Record(_ context.Context, attempt Attempt) error {
	if attempt.ID == "" {
		return errors.New("attempt id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.Email] = append(r.attempts[attempt.Email], attempt)
	return nil
}

func (r *memoryRepository) ListByEmail(_ context.Context, email string, limit int) ([]Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := append([]Attempt(nil), r.attempts[email]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit = ClampLimit(limit); len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
