package services

import (
	"errors"
	"fmt"
	"log"

	"studybuddy/models"
	"studybuddy/store"
)

// DefaultOwnerID is the single coarse owner identity used for all
// callers. The service is tutoring one anonymous student population, not
// multi-tenant accounts.
const DefaultOwnerID = "student"

type SessionService struct {
	repo store.SessionRepository
}

func NewSessionService(repo store.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

// Resolve maps an optional client-supplied session id to a session. An
// absent id creates a new session. A known id reuses its session. An
// unknown id silently creates a fresh session instead of failing, so a
// stale id held by a client starts a new conversation rather than
// breaking it.
func (s *SessionService) Resolve(ownerID, requestedID string) (*models.Session, bool, error) {
	if requestedID == "" {
		session, err := s.repo.Create(ownerID, nil)
		if err != nil {
			return nil, false, fmt.Errorf("failed to create session: %w", err)
		}
		log.Printf("[INFO] Created new session %s for owner %s", session.ID, ownerID)
		return session, true, nil
	}

	session, err := s.repo.Get(ownerID, requestedID)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to resolve session %s: %w", requestedID, err)
	}

	log.Printf("[INFO] Session %s not found, creating new one", requestedID)
	session, err = s.repo.Create(ownerID, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}

	return session, true, nil
}

// ListSessions returns metadata for all of the owner's sessions in
// creation order.
func (s *SessionService) ListSessions(ownerID string) []*models.SessionInfo {
	return s.repo.List(ownerID)
}
