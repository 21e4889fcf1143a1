package policy

import (
	"context"
	"sync"
)

// MemoryRepository keeps policies in process memory. It backs POLICY_STORE=memory
// for local runs; configuration is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{policies: make(map[string]Policy)}
}

func (r *MemoryRepository) GetPolicy(_ context.Context, botID string) (*Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[botID]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (r *MemoryRepository) SavePolicy(_ context.Context, botID string, p Policy) error {
	r.mu.Lock()
	r.policies[botID] = p.Clone()
	r.mu.Unlock()
	return nil
}
