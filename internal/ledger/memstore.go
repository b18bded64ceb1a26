package ledger

import (
	"context"
	"sync"

	"github.com/saaw-digital/giveaway-service/internal/model"
)

// MemStore is an in-memory Store used by tests and ephemeral deployments.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]model.LedgerEntry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: map[string]model.LedgerEntry{}}
}

// Load returns a copy of the current contents.
func (s *MemStore) Load(_ context.Context) (map[string]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.LedgerEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Save replaces the current contents.
func (s *MemStore) Save(_ context.Context, entries map[string]model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]model.LedgerEntry, len(entries))
	for k, v := range entries {
		s.entries[k] = v
	}
	return nil
}
