package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"studybuddy/models"
	"studybuddy/services/agent"
	"studybuddy/store"

	"github.com/samber/lo"
)

// FallbackReply is returned whenever generation fails or produces no
// usable text. The conversation degrades instead of hard-breaking.
const FallbackReply = "I'm ready to help with your studies! Please ask me any question."

const DefaultGenerationTimeout = 120 * time.Second

type ChatService struct {
	repo      store.SessionRepository
	generator agent.Generator
	timeout   time.Duration
}

func NewChatService(repo store.SessionRepository, generator agent.Generator, timeout time.Duration) *ChatService {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &ChatService{
		repo:      repo,
		generator: generator,
		timeout:   timeout,
	}
}

// Submit runs one conversation turn: append the user utterance, generate
// a reply from the full history, append the reply. The per-session lock
// is held for the whole turn so concurrent submits against the same
// session land as complete user/agent pairs.
//
// The user turn is not rolled back when generation fails; history
// records what was asked even if the answer degraded.
func (s *ChatService) Submit(ctx context.Context, session *models.Session, utterance string) (string, error) {
	if strings.TrimSpace(utterance) == "" {
		return "", fmt.Errorf("empty utterance: %w", ErrInvalidInput)
	}

	release, err := s.repo.LockSession(session.ID)
	if err != nil {
		return "", err
	}
	defer release()

	if err := s.repo.AppendTurn(session.ID, models.Turn{Role: models.RoleUser, Content: utterance}); err != nil {
		return "", err
	}

	history, err := s.repo.History(session.ID)
	if err != nil {
		return "", err
	}

	reply := s.generate(ctx, session.ID, history)

	if err := s.repo.AppendTurn(session.ID, models.Turn{Role: models.RoleAgent, Content: reply}); err != nil {
		log.Printf("[ERROR] Failed to record agent turn for session %s: %v", session.ID, err)
	}

	return reply, nil
}

// generate drives the fragment stream to exhaustion and assembles the
// reply, degrading to FallbackReply on any failure. The generation
// context is detached from the caller's cancellation: a client that
// disconnects mid-turn does not abort the underlying generation.
func (s *ChatService) generate(ctx context.Context, sessionID string, history []models.Turn) string {
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	fragments, err := s.generator.Generate(genCtx, agent.Request{History: history})
	if err != nil {
		log.Printf("[ERROR] Generation failed for session %s: %v", sessionID, err)
		return FallbackReply
	}

	var drained []agent.Fragment
	for fragment := range fragments {
		drained = append(drained, fragment)
	}

	if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		log.Printf("[ERROR] Session %s: %v after %s", sessionID, ErrGenerationTimeout, s.timeout)
	}

	usable := lo.FilterMap(drained, func(f agent.Fragment, _ int) (string, bool) {
		return f.Text, f.Kind == agent.FragmentText && strings.TrimSpace(f.Text) != ""
	})

	if len(usable) == 0 {
		log.Printf("[INFO] Generation produced no usable fragments for session %s, using fallback reply", sessionID)
		return FallbackReply
	}

	return strings.Join(usable, " ")
}
