package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/layout"
)

// Session is one live form. Every access to the form goes through Do.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	form         *form.Form
	lastActiveAt time.Time
}

// Do runs fn with exclusive access to the session's form.
func (s *Session) Do(fn func(f *form.Form)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
	fn(s.form)
}

func (s *Session) expired(maxAge, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	return now.Sub(s.CreatedAt) > maxAge || now.Sub(s.lastActiveAt) > idle
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	options     []form.Option
}

// NewManager creates a session manager with the given timeouts. options
// are applied to every form it creates.
func NewManager(maxAge, idleTimeout time.Duration, options ...form.Option) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		options:     options,
	}
}

// Create builds a form from in and registers a session for it.
func (m *Manager) Create(ctx context.Context, in form.Inputs) (*Session, error) {
	id := uuid.NewString()
	opts := append(append([]form.Option(nil), m.options...), form.WithID(id))
	f, err := form.NewContext(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{ID: id, CreatedAt: now, form: f, lastActiveAt: now}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.expired(m.maxAge, m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session and disposes its form.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Do(func(f *form.Form) { f.Dispose() })
	}
	return ok
}

// Len reports the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions.
func (m *Manager) Cleanup() {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.expired(m.maxAge, m.idleTimeout) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		m.Remove(id)
	}
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
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

// findNode returns the layout node with the given ID.
func findNode(l layout.Layout, id string) (*layout.Node, bool) {
	var found *layout.Node
	l.Walk(func(n *layout.Node) bool {
		if n.ID == id {
			found = n
		}
		return found == nil
	})
	return found, found != nil
}
