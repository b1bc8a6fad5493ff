package timeline

import (
	"sync"

	"github.com/google/uuid"
)

// Manager tracks live editor sessions. Sessions are ephemeral: nothing here
// is persisted, the only durable artifact of an editor session is the merged
// video the caller uploads elsewhere.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session)}
}

func (m *Manager) Create() *Session {
	session := NewSession()
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	return session, ok
}

func (m *Manager) Close(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
