package storage

import (
	"log/slog"
	"sync"
	"time"
)

// View is a labeling session the store can own
type View interface {
	ID() string
	Close() error
	LastActive() time.Time
}

// SessionStore keeps the live labeling sessions of one kind, at most one
// per browser.
type SessionStore[T View] struct {
	sessions map[string]T
	owners   map[string]string // session ID -> browser ID
	current  map[string]string // browser ID -> session ID
	mu       sync.RWMutex
}

func New[T View]() *SessionStore[T] {
	return &SessionStore[T]{
		sessions: make(map[string]T),
		owners:   make(map[string]string),
		current:  make(map[string]string),
	}
}

func (s *SessionStore[T]) Get(sessionID string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// Owner returns the browser a session was mounted for.
func (s *SessionStore[T]) Owner(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[sessionID]
	return owner, ok
}

// Mount registers session for browser and tears down the view that
// browser had open before, if any.
func (s *SessionStore[T]) Mount(browserID string, session T) {
	s.mu.Lock()
	prevID, hadPrev := s.current[browserID]
	var prev T
	if hadPrev {
		prev = s.sessions[prevID]
		delete(s.sessions, prevID)
		delete(s.owners, prevID)
	}
	s.sessions[session.ID()] = session
	s.owners[session.ID()] = browserID
	s.current[browserID] = session.ID()
	s.mu.Unlock()

	if hadPrev {
		if err := prev.Close(); err != nil {
			slog.Warn("Unable to close replaced session", "session_id", prevID, "err", err)
		}
	}
}

func (s *SessionStore[T]) GetAll() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]T, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore[T]) Delete(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		owner := s.owners[sessionID]
		if s.current[owner] == sessionID {
			delete(s.current, owner)
		}
		delete(s.sessions, sessionID)
		delete(s.owners, sessionID)
	}
	s.mu.Unlock()

	if ok {
		_ = session.Close()
	}
}

// Sweep drops sessions idle for longer than maxAge and returns how many.
func (s *SessionStore[T]) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []string
	for id, session := range s.GetAll() {
		if session.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		s.Delete(id)
	}
	return len(stale)
}

func (s *SessionStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
