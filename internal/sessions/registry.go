// Package sessions tracks live quiz and chat sessions and tears down idle ones.
package sessions

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is anything the registry can expire.
type Session interface {
	ID() string
	LastActive() time.Time
	Close()
}

// Registry holds the active sessions of one kind.
type Registry[S Session] struct {
	kind   string
	mu     sync.RWMutex
	active map[string]S
}

// NewRegistry creates an empty registry. kind is used in log lines.
func NewRegistry[S Session](kind string) *Registry[S] {
	return &Registry[S]{
		kind:   kind,
		active: make(map[string]S),
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session with id.
func (r *Registry[S]) Get(id string) (S, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.active[id]
	return s, ok
}

// Register adds s, closing any session it replaces.
func (r *Registry[S]) Register(s S) {
	r.mu.Lock()
	existing, exists := r.active[s.ID()]
	r.active[s.ID()] = s
	r.mu.Unlock()

	if exists && any(existing) != any(s) {
		existing.Close()
	}
	slog.Info("Session registered", "kind", r.kind, "session_id", s.ID())
}

// Remove closes and forgets the session. It reports whether it existed.
func (r *Registry[S]) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.active[id]
	if ok {
		delete(r.active, id)
	}
	r.mu.Unlock()

	if ok {
		s.Close()
		slog.Info("Session removed", "kind", r.kind, "session_id", id)
	}
	return ok
}

// Len returns the number of active sessions.
func (r *Registry[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Expire closes every session idle since before cutoff and returns how many were removed.
func (r *Registry[S]) Expire(cutoff time.Time) int {
	r.mu.Lock()
	var expired []S
	for id, s := range r.active {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(r.active, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		slog.Info("Idle session expired", "kind", r.kind, "session_id", s.ID())
	}
	return len(expired)
}

// CloseAll closes every session. Used on shutdown.
func (r *Registry[S]) CloseAll() {
	r.mu.Lock()
	all := r.active
	r.active = make(map[string]S)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
