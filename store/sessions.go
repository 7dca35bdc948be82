package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"studybuddy/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound reports a session id that does not exist for the owner.
	// Absence is an expected outcome, callers handle it without logging
	// noise.
	ErrNotFound = errors.New("session not found")

	// ErrUnknownSession reports an append against an id that no longer
	// exists (evicted between resolve and append).
	ErrUnknownSession = errors.New("unknown session")

	// ErrStoreFull reports that the configured session capacity is
	// exhausted.
	ErrStoreFull = errors.New("session store full")
)

type SessionRepository interface {
	Create(ownerID string, state map[string]any) (*models.Session, error)
	Get(ownerID, sessionID string) (*models.Session, error)
	AppendTurn(sessionID string, turn models.Turn) error
	History(sessionID string) ([]models.Turn, error)
	List(ownerID string) []*models.SessionInfo
	LockSession(sessionID string) (release func(), err error)
}

type sessionEntry struct {
	session *models.Session
	mu      sync.Mutex
}

// MemorySessionRepository keeps all sessions in process memory. Sessions
// live until eviction (if enabled) or process exit.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	order    []string
	capacity int
}

// NewMemorySessionRepository creates an in-memory session table. A
// capacity of 0 means unlimited.
func NewMemorySessionRepository(capacity int) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*sessionEntry),
		capacity: capacity,
	}
}

func (r *MemorySessionRepository) Create(ownerID string, state map[string]any) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capacity > 0 && len(r.sessions) >= r.capacity {
		return nil, fmt.Errorf("cannot create session for owner %s: %w", ownerID, ErrStoreFull)
	}

	if state == nil {
		state = make(map[string]any)
	}

	now := time.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		History:   []models.Turn{},
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.sessions[session.ID] = &sessionEntry{session: session}
	r.order = append(r.order, session.ID)

	return session, nil
}

func (r *MemorySessionRepository) Get(ownerID, sessionID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok || entry.session.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	return entry.session, nil
}

func (r *MemorySessionRepository) AppendTurn(sessionID string, turn models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("cannot append turn to session %s: %w", sessionID, ErrUnknownSession)
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	entry.session.History = append(entry.session.History, turn)
	entry.session.UpdatedAt = time.Now()

	return nil
}

// History returns a copy of the session's turns, safe to read while other
// turns are being appended.
func (r *MemorySessionRepository) History(sessionID string) ([]models.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("cannot read history of session %s: %w", sessionID, ErrUnknownSession)
	}

	history := make([]models.Turn, len(entry.session.History))
	copy(history, entry.session.History)

	return history, nil
}

func (r *MemorySessionRepository) List(ownerID string) []*models.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := []*models.SessionInfo{}
	for _, id := range r.order {
		entry, ok := r.sessions[id]
		if !ok || entry.session.OwnerID != ownerID {
			continue
		}
		infos = append(infos, &models.SessionInfo{
			ID:        entry.session.ID,
			OwnerID:   entry.session.OwnerID,
			Turns:     len(entry.session.History),
			CreatedAt: entry.session.CreatedAt,
			UpdatedAt: entry.session.UpdatedAt,
		})
	}

	return infos
}

// LockSession takes the per-session write lock, serializing whole turns
// against the same session. Turns on different sessions never contend
// here.
func (r *MemorySessionRepository) LockSession(sessionID string) (func(), error) {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cannot lock session %s: %w", sessionID, ErrUnknownSession)
	}

	entry.mu.Lock()
	return entry.mu.Unlock, nil
}

// EvictIdle removes sessions whose last update is older than the given
// age and returns how many were removed. Callers opt in, the reference
// behavior never evicts.
func (r *MemorySessionRepository) EvictIdle(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	evicted := 0
	remaining := r.order[:0]

	for _, id := range r.order {
		entry, ok := r.sessions[id]
		if !ok {
			continue
		}
		if entry.session.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
			continue
		}
		remaining = append(remaining, id)
	}
	r.order = remaining

	return evicted
}

// Len reports the number of live sessions.
func (r *MemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
