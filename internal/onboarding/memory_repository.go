package onboarding

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryRepository builds an in-memory session store for tests and
// development.
func NewMemoryRepository() Repository {
	return &memoryRepository{sessions: make(map[string]Session)}
}

func (r *memoryRepository) Save(_ context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *memoryRepository) Find(_ context.Context, id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memoryRepository) Purge(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, session := range r.sessions {
		if session.UpdatedAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
