// Package session keeps one conversation per page visitor. Sessions live in
// memory only; an idle session is dropped after its TTL, which is the server
// equivalent of reloading the page.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"chartmentor/internal/analysis"
	"chartmentor/internal/logger"
	"chartmentor/internal/responder"

	"github.com/google/uuid"
)

// Factory builds the responder for a new session.
type Factory func() *responder.Responder

// Session is one visitor's conversation plus the chart analysis currently
// attached to it.
type Session struct {
	ID        string
	CreatedAt time.Time

	responder *responder.Responder

	mu       sync.Mutex
	lastSeen time.Time
	result   *analysis.Result
}

// Responder returns the session's responder (and thereby its transcript).
func (s *Session) Responder() *responder.Responder { return s.responder }

// Analysis returns a copy of the attached analysis, or nil.
func (s *Session) Analysis() *analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	cp := *s.result
	return &cp
}

// SetAnalysis attaches res; nil detaches.
func (s *Session) SetAnalysis(res *analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res == nil {
		s.result = nil
		return
	}
	cp := *res
	s.result = &cp
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the latest access.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Manager struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager. ttl <= 0 keeps sessions until shutdown.
func NewManager(factory Factory, ttl time.Duration) *Manager {
	if factory == nil {
		factory = func() *responder.Responder { return responder.New(nil) }
	}
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session with a fresh id.
func (m *Manager) Create() *Session {
	s, _ := m.Ensure("")
	return s
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.touch(m.now())
	return s, true
}

// Ensure returns the session for id, creating it when absent. created is true
// for a new session. An empty id gets a generated one.
func (m *Manager) Ensure(id string) (s *Session, created bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := m.Get(id); ok {
		return s, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.touch(m.now())
		return s, false
	}
	now := m.now()
	s = &Session{ID: id, CreatedAt: now, lastSeen: now, responder: m.factory()}
	m.sessions[id] = s
	return s, true
}

// Delete drops a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if m.ttl <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Infof("session sweep: removed %d idle sessions, %d active", n, m.Len())
			}
		}
	}
}
