package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Manager tracks live sessions so they can be counted and shut down
// together.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	peak     int

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64

	logger *slog.Logger
}

// ManagerStats is a snapshot of a Manager's counters.
type ManagerStats struct {
	Active       int
	Peak         int
	TotalCreated uint64
	TotalClosed  uint64
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers s. It is removed again once its Serve returns.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	if len(m.sessions) > m.peak {
		m.peak = len(m.sessions)
	}
	m.mu.Unlock()
	m.totalCreated.Add(1)

	go func() {
		<-s.Done()
		m.remove(s.ID)
	}()
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()
	if ok {
		m.totalClosed.Add(1)
		m.logger.Debug("session removed", "session_id", id, "active_sessions", active)
	}
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns the ids of the live sessions, sorted.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ManagerStats{
		Active:       len(m.sessions),
		Peak:         m.peak,
		TotalCreated: m.totalCreated.Load(),
		TotalClosed:  m.totalClosed.Load(),
	}
}

// CloseAll stops every live session and waits for them to finish or for
// ctx to end.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	m.logger.Info("closing sessions", "count", len(sessions))
	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
