package chat

import (
	"sync"
	"time"
)

// Registry maps live connections to sessions and users to their most
// recently registered connection. Both maps change under one lock so they
// always agree.
type Registry struct {
	mu sync.RWMutex

	sessions map[string]*Session // connection id -> session
	byUser   map[string]string   // user id -> connection id

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: map[string]*Session{},
		byUser:   map[string]string{},
		now:      time.Now,
	}
}

// Register binds identity to connID. The user's previous connection, if any,
// stays open but no longer resolves through LookupByUser.
func (r *Registry) Register(connID string, identity UserIdentity) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.sessions[connID]; ok && prev.Identity.ID != identity.ID {
		if r.byUser[prev.Identity.ID] == connID {
			delete(r.byUser, prev.Identity.ID)
		}
	}
	s := &Session{ConnID: connID, Identity: identity, JoinedAt: r.now()}
	r.sessions[connID] = s
	r.byUser[identity.ID] = connID
	return *s
}

func (r *Registry) LookupBySocket(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (r *Registry) LookupByUser(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Remove drops the session of connID and returns the identity it carried.
// The user mapping is only dropped when it still points at connID.
func (r *Registry) Remove(connID string) (UserIdentity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return UserIdentity{}, false
	}
	delete(r.sessions, connID)
	if r.byUser[s.Identity.ID] == connID {
		delete(r.byUser, s.Identity.ID)
	}
	return s.Identity, true
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}
