package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/event"
	"github.com/restock-console/mapeditor/internal/models"
)

// DefaultMaxSessions limits concurrent editors.
const DefaultMaxSessions = 10

// SessionKeepAliveWindow protects recently used sessions from eviction.
const SessionKeepAliveWindow = 5 * time.Minute

// ErrTooManySessions is returned when every slot holds an active editor.
var ErrTooManySessions = errors.New("too many open editor sessions")

// Config tunes the manager.
type Config struct {
	MaxSessions int
	KeepAlive   time.Duration
	Editor      editor.Options
}

// Manager owns the live editor sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	backend  editor.Backend
	cfg      Config
}

// SessionState is one editor plus bookkeeping.
type SessionState struct {
	Editor       *editor.Editor
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a manager whose editors talk to backend.
func NewManager(backend editor.Backend, cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = SessionKeepAliveWindow
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		backend:  backend,
		cfg:      cfg,
	}
}

// StartSession opens an editor on mapID.
func (m *Manager) StartSession(ctx context.Context, mapID string) (*models.SessionInfo, error) {
	if err := m.makeRoom(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ed := editor.New(id, m.backend, event.NewDispatcher(), m.cfg.Editor)
	if err := ed.Load(ctx, mapID, false); err != nil {
		ed.Close()
		return nil, err
	}

	now := time.Now()
	state := &SessionState{Editor: ed, CreatedAt: now, LastAccessed: now}

	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()

	fmt.Printf("[Manager] Started session %s on map %s\n", id[:8], mapID)
	info := state.info(id)
	return &info, nil
}

// makeRoom evicts the least recently used idle session without unsaved
// changes when the manager is full.
func (m *Manager) makeRoom() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.cfg.MaxSessions {
		return nil
	}

	keepAliveCutoff := time.Now().Add(-m.cfg.KeepAlive)
	var candidates []string
	for id, state := range m.sessions {
		info := state.Editor.Info()
		if info.Dirty || info.Saving || state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return ErrTooManySessions
	}
	sort.Slice(candidates, func(i, j int) bool {
		return m.sessions[candidates[i]].LastAccessed.Before(m.sessions[candidates[j]].LastAccessed)
	})

	id := candidates[0]
	m.sessions[id].Editor.Close()
	delete(m.sessions, id)
	fmt.Printf("[Manager] Evicted idle session %s to make room\n", id[:8])
	return nil
}

// CleanupOldSessions closes sessions idle for longer than maxAge, keeping
// those used within the keep-alive window, with unsaved changes or with a
// save in flight.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-m.cfg.KeepAlive)

	removed := 0
	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) || !state.LastAccessed.Before(cutoff) {
			continue
		}
		info := state.Editor.Info()
		if info.Saving {
			continue
		}
		if info.Dirty {
			fmt.Printf("[Manager] Keeping aged session %s with unsaved changes\n", id[:8])
			continue
		}
		state.Editor.Close()
		delete(m.sessions, id)
		removed++
		fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
			id[:8], time.Since(state.LastAccessed).Round(time.Second))
	}
	return removed
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}

// GetEditor returns a session's editor and marks the session as used.
func (m *Manager) GetEditor(id string) (*editor.Editor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Editor, true
}

// GetSession returns a session summary.
func (m *Manager) GetSession(id string) (*models.SessionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	info := state.info(id)
	return &info, true
}

// ListSessions returns all sessions, oldest first.
func (m *Manager) ListSessions() []models.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]models.SessionInfo, 0, len(m.sessions))
	for id, state := range m.sessions {
		list = append(list, state.info(id))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// CloseSession tears an editor down.
func (m *Manager) CloseSession(id string) bool {
	m.mu.Lock()
	state, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	state.Editor.Close()
	return true
}

// Close tears every editor down.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*SessionState)
	m.mu.Unlock()

	for _, state := range sessions {
		state.Editor.Close()
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (s *SessionState) info(id string) models.SessionInfo {
	ed := s.Editor.Info()
	return models.SessionInfo{
		ID:           id,
		MapID:        ed.MapID,
		MapName:      ed.MapName,
		Mode:         ed.Mode,
		Dirty:        ed.Dirty,
		Saving:       ed.Saving,
		Placements:   ed.Placements,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed,
	}
}
