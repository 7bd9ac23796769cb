package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrSessionUnsaved       = errors.New("session has unsaved changes")
)

// entry is the manager's bookkeeping for one live session. finishedAt and
// unsaved are kept up to date whenever the session is saved or restored, so
// the sweeper never has to read engine state.
type entry struct {
	session    *service.Session
	finishedAt time.Time // when Save first saw the game over, zero while playing
	unsaved    bool      // the last persistence attempt failed
}

// Manager keeps live game sessions in memory, optionally backed by a
// SessionPersistence. Session IDs are case-insensitive and stored lower case.
type Manager struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	persistence SessionPersistence
	now         func() time.Time
}

// NewManager creates an in-memory session manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence creates a session manager that saves every new or
// changed session through persistence
func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		entries:     make(map[string]*entry),
		persistence: persistence,
		now:         time.Now,
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Create starts a game for config under id, generating a short ID when id is empty
func (m *Manager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id = normalizeID(id)
	if id == "" {
		id = m.newID()
	} else if _, exists := m.entries[id]; exists {
		return nil, ErrSessionAlreadyExists
	}

	now := m.now()
	e := &entry{session: &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}}
	m.entries[id] = e

	// A failed first save leaves the game playable in memory
	if err := m.persist(e); err != nil {
		log.Printf("Warning: Failed to persist new session %s: %v", id, err)
	}
	return e.session, nil
}

// newID returns an unused 4 hex character ID. The caller holds m.mu.
func (m *Manager) newID() string {
	buf := make([]byte, 2)
	for {
		rand.Read(buf)
		id := hex.EncodeToString(buf)
		if _, taken := m.entries[id]; !taken {
			return id
		}
	}
}

// Get returns a live session, restoring it from persistence when it is not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	id = normalizeID(id)

	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if ok {
		return e.session, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}
	restored, err := m.restore(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have restored it first
	if e, ok := m.entries[id]; ok {
		return e.session, nil
	}
	m.entries[id] = restored
	return restored.session, nil
}

// restore loads a persisted session that is not shared yet, so its engine
// state can be read without the service lock
func (m *Manager) restore(id string) (*entry, error) {
	session, err := m.persistence.Load(id)
	if err != nil {
		return nil, err
	}
	e := &entry{session: session}
	if session.Engine.IsGameOver() {
		e.finishedAt = session.LastAccessedAt
	}
	return e, nil
}

// List returns the live sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e.session)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	id = normalizeID(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.entries[id]
	delete(m.entries, id)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// Evict drops a session from memory only; a persisted copy can be restored
// by Get. Sessions whose last save failed are kept for Flush.
func (m *Manager) Evict(id string) error {
	id = normalizeID(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrSessionNotFound
	}
	if e.unsaved {
		return ErrSessionUnsaved
	}
	delete(m.entries, id)
	return nil
}

// Touch records that a session was used. Persisting is left to Save, which
// runs once the action has changed the game.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[normalizeID(id)]; ok {
		e.session.LastAccessedAt = m.now()
	}
}

// Save persists a session after an action. It reads the engine state, so the
// caller must hold whatever lock serializes actions on the session.
func (m *Manager) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[normalizeID(id)]
	if !ok {
		return ErrSessionNotFound
	}

	switch over := e.session.Engine.IsGameOver(); {
	case over && e.finishedAt.IsZero():
		e.finishedAt = m.now()
	case !over:
		// Reset brings a finished game back to life
		e.finishedAt = time.Time{}
	}
	return m.persist(e)
}

// persist saves e and tracks whether it is still owed a save. The caller holds m.mu.
func (m *Manager) persist(e *entry) error {
	if m.persistence == nil {
		return nil
	}
	if err := m.persistence.Save(e.session); err != nil {
		e.unsaved = true
		return err
	}
	e.unsaved = false
	return nil
}

// Sweep evicts sessions idle for longer than idle and finished games older
// than finished. Sessions whose last save failed stay in memory so Flush can
// retry them. It returns the number of evicted sessions.
func (m *Manager) Sweep(idle, finished time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if e.unsaved {
			continue
		}
		stale := now.Sub(e.session.LastAccessedAt) > idle
		done := !e.finishedAt.IsZero() && now.Sub(e.finishedAt) > finished
		if stale || done {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Flush retries every session whose last save failed and returns how many
// were saved. It reads engine state, so call it only once no more actions
// can arrive, such as during shutdown.
func (m *Manager) Flush() (int, error) {
	if m.persistence == nil {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	saved, failed := 0, 0
	for _, e := range m.entries {
		if !e.unsaved {
			continue
		}
		if err := m.persist(e); err != nil {
			failed++
			continue
		}
		saved++
	}
	if failed > 0 {
		return saved, fmt.Errorf("failed to save %d sessions", failed)
	}
	return saved, nil
}

// LoadPersistedSessions restores every persisted session that is not in memory yet
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		id = normalizeID(id)
		if _, ok := m.entries[id]; ok {
			continue
		}
		e, err := m.restore(id)
		if err != nil {
			log.Printf("Warning: Failed to load persisted session %s: %v", id, err)
			continue
		}
		m.entries[id] = e
		loaded++
	}

	if loaded > 0 {
		log.Printf("Loaded %d persisted sessions from storage", loaded)
	}
	return nil
}
