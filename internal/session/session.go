package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Wildcard grants every permission scope.
const Wildcard = "*"

// Session is one connection's identity: who it speaks for, whether it proved
// it, and which scopes it holds. It satisfies the engine's session contract.
type Session struct {
	id            string
	entityID      string
	authenticated bool
	scopes        map[string]struct{}

	mu       sync.Mutex
	lastSeen time.Time
}

// New creates a session with a fresh id.
func New(entityID string, authenticated bool, scopes ...string) *Session {
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	return &Session{
		id:            uuid.New().String(),
		entityID:      entityID,
		authenticated: authenticated,
		scopes:        set,
		lastSeen:      time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// EntityID returns the entity this session speaks for.
func (s *Session) EntityID() string {
	return s.entityID
}

// Authenticated reports whether the session presented valid credentials.
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// HasPermission reports whether the session holds the scope. A wildcard
// scope grants everything.
func (s *Session) HasPermission(scope string) bool {
	if _, ok := s.scopes[Wildcard]; ok {
		return true
	}
	_, ok := s.scopes[scope]
	return ok
}

// Touch refreshes the session's liveness timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last heartbeat or activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager tracks live sessions by id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Add registers a session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
}

// Get returns the session with the given id, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Remove drops a session; no-op when absent.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
