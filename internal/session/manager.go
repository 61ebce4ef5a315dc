package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the live wizard sessions. Sessions are purely in-memory and
// expire after the configured idle TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *zap.Logger
}

// NewManager creates a session manager
func NewManager(ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// Create starts a new wizard session for the given owner
func (m *Manager) Create(ownerEmail string) *Session {
	s := New(uuid.NewString(), ownerEmail, m.logger)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", s.ID()),
		zap.String("owner", ownerEmail))

	return s
}

// Get returns a live session by id and refreshes its idle timer
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	s.Touch()
	return s, nil
}

// Remove drops a session
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start runs the idle-session reaper until ctx is cancelled
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

// reap removes sessions idle past the TTL
func (m *Manager) reap() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.IdleSince().Before(cutoff) {
			delete(m.sessions, id)
			m.logger.Info("Expired idle session", zap.String("session_id", id))
		}
	}
}
