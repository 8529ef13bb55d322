package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated owner session. The session ID doubles as the
// bearer token presented on every ledger/dash call.
type Session struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	ClientIP  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Manager struct {
	sessions map[string]*Session
	byOwner  map[string]*Session
	mu       sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byOwner:  make(map[string]*Session),
	}
}

func (m *Manager) Create(ownerID, name, email, clientIP string, ttl time.Duration) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-login returns the existing session, refreshed.
	if s, ok := m.byOwner[ownerID]; ok && time.Now().Before(s.ExpiresAt) {
		s.ExpiresAt = time.Now().Add(ttl)
		s.ClientIP = clientIP
		return s
	}

	s := &Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Email:     email,
		ClientIP:  clientIP,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	m.sessions[s.ID] = s
	m.byOwner[ownerID] = s
	return s
}

// Get returns the session for a token if it exists and has not expired.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, sessionID)
		delete(m.byOwner, s.OwnerID)
		return nil, false
	}
	return s, true
}

func (m *Manager) Delete(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	delete(m.sessions, sessionID)
	delete(m.byOwner, s.OwnerID)
	return true
}

func (m *Manager) Active() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if now.Before(s.ExpiresAt) {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			delete(m.byOwner, s.OwnerID)
		}
	}
}
