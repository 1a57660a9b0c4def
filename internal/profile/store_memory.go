package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps profiles in memory. Used in tests and in deployments
// without a configured database.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*Profile
}

// NewInMemoryStore constructs an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[uuid.UUID]*Profile)}
}

// Save inserts or replaces a profile. Used for seeding.
func (s *InMemoryStore) Save(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
}

func (s *InMemoryStore) Update(ctx context.Context, id uuid.UUID, changes Changes) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if changes.Name != nil {
		p.Name = *changes.Name
	}
	if changes.Company != nil {
		p.Company = *changes.Company
	}
	if changes.Phone != nil {
		p.Phone = *changes.Phone
	}
	if changes.Plan != nil {
		p.Plan = *changes.Plan
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}
