package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/voxdesk/voxdesk/internal/journal"
	"github.com/voxdesk/voxdesk/internal/schema"
)

// ErrSessionNotFound is returned when a session id is unknown (expired,
// abandoned, or never created).
var ErrSessionNotFound = errors.New("session not found")

// Manager is the process-wide session registry. Each session is owned by one
// conversation, but sessions are created and looked up concurrently, so the
// registry itself is locked.
type Manager struct {
	journal *journal.Journal

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty registry whose sessions finalize into j.
func NewManager(j *journal.Journal) *Manager {
	return &Manager{
		journal:  j,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session for the given schema and returns it.
func (m *Manager) Create(s *schema.Schema) *Session {
	sess := New(uuid.New().String(), s, m.journal)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close abandons and forgets a session. Closing an unknown id is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		sess.Abandon()
	}
}

// Finalize finalizes the session and, on success, removes it from the
// registry.
func (m *Manager) Finalize(id string) (Receipt, error) {
	sess, err := m.Get(id)
	if err != nil {
		return Receipt{}, err
	}

	receipt, err := sess.Finalize()
	if err != nil {
		return Receipt{}, err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	return receipt, nil
}

// Len reports the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
