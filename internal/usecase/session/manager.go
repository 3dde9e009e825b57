package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
)

// Manager defaults.
const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// Manager tracks sessions by ID for the HTTP surface. Idle sessions past
// the TTL are purged opportunistically on Create and Get; when the bound
// is hit anyway, the least recently active session is evicted.
type Manager struct {
	resolver    Resolver
	ranker      Ranker
	ttl         time.Duration
	maxSessions int
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	now func() time.Time
}

// NewManager creates a session manager. ttl <= 0 and maxSessions <= 0 fall
// back to the defaults.
func NewManager(resolver Resolver, ranker Ranker, ttl time.Duration, maxSessions int, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		resolver:    resolver,
		ranker:      ranker,
		ttl:         ttl,
		maxSessions: maxSessions,
		logger:      logger,
		sessions:    make(map[string]*Session),
		now:         time.Now,
	}
}

// Create makes a new idle session and registers it.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()
	if len(m.sessions) >= m.maxSessions {
		m.evictOldestLocked()
	}

	s := newSession(uuid.NewString(), m.resolver, m.ranker, m.logger)
	m.sessions[s.ID()] = s
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) purgeLocked() {
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	for id, s := range m.sessions {
		at := s.LastActive()
		if oldestID == "" || at.Before(oldestAt) {
			oldestID = id
			oldestAt = at
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.logger.Warn("Session evicted at capacity", zap.String("session_id", oldestID))
	}
}
