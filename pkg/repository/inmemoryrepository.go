// Package repository holds the live match sessions of the process
package repository

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tecu23/match-server/pkg/match"
)

var (
	// ErrNotFound is returned when no session exists under an id
	ErrNotFound = errors.New("match not found")
	// ErrRetired is returned for ids abandoned by a rematch
	ErrRetired = errors.New("match id has been retired")
	// ErrExists is returned when replacing into an id that is already taken
	ErrExists = errors.New("match id already in use")
)

// Factory builds an empty waiting session for a new id
type Factory func(id string) *match.Session

// InMemoryRepository is an in-memory registry of match sessions keyed by id.
// Each session is held by exactly one entry.
type InMemoryRepository struct {
	sessions map[string]*match.Session
	retired  map[string]struct{}
	factory  Factory
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(factory Factory, logger *zap.Logger) *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*match.Session),
		retired:  make(map[string]struct{}),
		factory:  factory,
		logger:   logger,
	}
}

// GetOrCreate returns the session under id, creating an empty waiting one
// when none exists. The boolean reports whether it was created.
func (r *InMemoryRepository) GetOrCreate(id string) (*match.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.retired[id]; ok {
		return nil, false, ErrRetired
	}

	if session, ok := r.sessions[id]; ok {
		return session, false, nil
	}

	session := r.factory(id)
	r.sessions[id] = session

	r.logger.Debug("created match session", zap.String("match_id", id))
	return session, true, nil
}

// Get retrieves a session by id
func (r *InMemoryRepository) Get(id string) (*match.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return session, nil
}

// Replace retires oldID and stores session under newID
func (r *InMemoryRepository) Replace(oldID, newID string, session *match.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[newID]; ok {
		return ErrExists
	}
	if _, ok := r.retired[newID]; ok {
		return ErrRetired
	}

	delete(r.sessions, oldID)
	r.retired[oldID] = struct{}{}
	r.sessions[newID] = session

	r.logger.Debug("replaced match session",
		zap.String("old_match_id", oldID),
		zap.String("new_match_id", newID))
	return nil
}

// ListActive returns all sessions currently being played
func (r *InMemoryRepository) ListActive() []*match.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*match.Session
	for _, s := range r.sessions {
		if s.Status() == match.StatusActive {
			active = append(active, s)
		}
	}

	return active
}

// Len returns the number of live sessions
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
