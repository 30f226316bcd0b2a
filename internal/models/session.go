package models

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

// SessionStore is an in-memory thread-safe store for open wizards.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*wizard.Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*wizard.Session)}
}

// Create opens a wizard in namespace, assigning it a UUID. editing is the
// plan being edited, or nil for a new plan.
func (s *SessionStore) Create(namespace string, editing *kube.Plan) *wizard.Session {
	session := wizard.NewSession(uuid.New().String(), namespace, editing)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

// Get returns a session by ID, or nil if not found.
func (s *SessionStore) Get(id string) *wizard.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// List returns all sessions, oldest first.
func (s *SessionStore) List() []*wizard.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*wizard.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})
	return result
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Expire removes sessions not accessed since now minus ttl and returns how
// many were removed.
func (s *SessionStore) Expire(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, session := range s.sessions {
		if session.LastAccess().Add(ttl).Before(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
