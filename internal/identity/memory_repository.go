package identity

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

// NewMemoryStore builds an in-memory identity cache for tests and the
// terminal client.
func NewMemoryStore() Store {
	return &memoryStore{identities: make(map[string]Identity)}
}

func (s *memoryStore) Get(_ context.Context, key string) (Identity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[key]
	return identity, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[key] = identity
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, key)
	return nil
}
