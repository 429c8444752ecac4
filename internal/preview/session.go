package preview

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds per-connection preview state. A client that reconnects with
// its session id picks up the last generated module.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu           sync.Mutex
	lastActiveAt time.Time
	lastCode     string
	generations  int
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		lastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActiveAt = now
	s.mu.Unlock()
}

// Record stores a freshly generated module.
func (s *Session) Record(code string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCode = code
	s.generations++
	s.lastActiveAt = now
}

// LastCode returns the most recent module and how many generations the
// session has run.
func (s *Session) LastCode() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode, s.generations
}

func (s *Session) expired(now time.Time, maxAge, idleTimeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.CreatedAt) > maxAge || now.Sub(s.lastActiveAt) > idleTimeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	s := newSession(m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.expired(m.now(), m.maxAge, m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions.
func (m *Manager) Cleanup() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.expired(now, m.maxAge, m.idleTimeout) {
			delete(m.sessions, id)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
