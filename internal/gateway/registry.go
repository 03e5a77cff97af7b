package gateway

import "sync"

// Registry maps each connected user to the one session that currently
// receives their pushes. A later connection for the same user replaces the
// earlier mapping.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]string // userID -> sessionID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]string)}
}

// Connect maps userID to sessionID and returns the session it replaced, if any.
func (r *Registry) Connect(userID, sessionID string) (previous string, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced = r.sessions[userID]
	r.sessions[userID] = sessionID
	return previous, replaced
}

// Disconnect removes the entry whose session is sessionID. Unknown or
// already replaced sessions leave the registry untouched.
func (r *Registry) Disconnect(sessionID string) (userID string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for u, s := range r.sessions {
		if s == sessionID {
			delete(r.sessions, u)
			return u, true
		}
	}
	return "", false
}

// Lookup returns the live session of userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// Len returns the number of connected users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshot returns a copy of the current mapping.
func (r *Registry) snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.sessions))
	for u, s := range r.sessions {
		out[u] = s
	}
	return out
}

// Clear drops every mapping.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]string)
}
