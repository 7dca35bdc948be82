package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"studybuddy/models"
	"studybuddy/services/agent"
	"studybuddy/store"
)

type stubGenerator struct {
	reply func(req agent.Request) []agent.Fragment
	err   error
}

func (s *stubGenerator) Generate(ctx context.Context, req agent.Request) (<-chan agent.Fragment, error) {
	if s.err != nil {
		return nil, s.err
	}

	out := make(chan agent.Fragment)
	go func() {
		defer close(out)
		for _, fragment := range s.reply(req) {
			select {
			case out <- fragment:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func textFragments(texts ...string) func(agent.Request) []agent.Fragment {
	return func(agent.Request) []agent.Fragment {
		fragments := make([]agent.Fragment, len(texts))
		for i, text := range texts {
			fragments[i] = agent.Fragment{Kind: agent.FragmentText, Text: text}
		}
		return fragments
	}
}

func newTestChat(generator agent.Generator) (*ChatService, *store.MemorySessionRepository, *models.Session) {
	repo := store.NewMemorySessionRepository(0)
	session, _ := repo.Create("student", nil)
	return NewChatService(repo, generator, time.Second), repo, session
}

func TestSubmitAppendsUserAndAgentTurns(t *testing.T) {
	chat, repo, session := newTestChat(&stubGenerator{reply: textFragments("Sure,", "let's study!")})

	reply, err := chat.Submit(context.Background(), session, "Can you help me?")
	if err != nil {
		t.Fatalf("Submit() returned error: %v", err)
	}
	if reply != "Sure, let's study!" {
		t.Errorf("reply = %q, expected fragments joined with a single space", reply)
	}

	history, _ := repo.History(session.ID)
	if len(history) != 2 {
		t.Fatalf("history length = %d, expected 2", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "Can you help me?" {
		t.Errorf("history[0] = %s/%q, expected user turn with the utterance", history[0].Role, history[0].Content)
	}
	if history[1].Role != models.RoleAgent || history[1].Content != reply {
		t.Errorf("history[1] = %s/%q, expected agent turn with the reply", history[1].Role, history[1].Content)
	}
}

func TestSubmitHistoryGrowsByPairs(t *testing.T) {
	chat, repo, session := newTestChat(&stubGenerator{reply: textFragments("ok")})

	const turns = 5
	for i := 0; i < turns; i++ {
		if _, err := chat.Submit(context.Background(), session, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Submit() #%d returned error: %v", i+1, err)
		}
	}

	history, _ := repo.History(session.ID)
	if len(history) != 2*turns {
		t.Fatalf("history length = %d, expected %d", len(history), 2*turns)
	}
	for i := 0; i < turns; i++ {
		if history[2*i].Role != models.RoleUser {
			t.Errorf("history[%d].Role = %s, expected user", 2*i, history[2*i].Role)
		}
		if history[2*i].Content != fmt.Sprintf("question %d", i) {
			t.Errorf("history[%d].Content = %q, submission order not preserved", 2*i, history[2*i].Content)
		}
		if history[2*i+1].Role != models.RoleAgent {
			t.Errorf("history[%d].Role = %s, expected agent", 2*i+1, history[2*i+1].Role)
		}
	}
}

func TestSubmitRejectsBlankUtterance(t *testing.T) {
	chat, repo, session := newTestChat(&stubGenerator{reply: textFragments("should not run")})

	for _, utterance := range []string{"", "   ", "\n\t"} {
		_, err := chat.Submit(context.Background(), session, utterance)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Submit(%q) error = %v, expected ErrInvalidInput", utterance, err)
		}
	}

	history, _ := repo.History(session.ID)
	if len(history) != 0 {
		t.Errorf("history length = %d after rejected input, expected 0", len(history))
	}
}

func TestSubmitContextIncludesFullHistory(t *testing.T) {
	lengths := []int{}
	generator := &stubGenerator{reply: func(req agent.Request) []agent.Fragment {
		lengths = append(lengths, len(req.History))
		return []agent.Fragment{{Kind: agent.FragmentText, Text: fmt.Sprintf("history=%d", len(req.History))}}
	}}
	chat, _, session := newTestChat(generator)

	first, _ := chat.Submit(context.Background(), session, "Hello, my name is Alice")
	second, _ := chat.Submit(context.Background(), session, "What is my name?")

	if first != "history=1" {
		t.Errorf("first reply = %q, expected the new utterance in context", first)
	}
	if second != "history=3" {
		t.Errorf("second reply = %q, expected both prior turns plus the new utterance in context", second)
	}
	if len(lengths) != 2 || lengths[0] != 1 || lengths[1] != 3 {
		t.Errorf("generator saw history lengths %v, expected [1 3]", lengths)
	}
}

func TestSubmitFallbackOnGenerationError(t *testing.T) {
	chat, repo, session := newTestChat(&stubGenerator{err: errors.New("backend down")})

	reply, err := chat.Submit(context.Background(), session, "help")
	if err != nil {
		t.Fatalf("Submit() returned error: %v, expected degraded reply", err)
	}
	if reply != FallbackReply {
		t.Errorf("reply = %q, expected fallback reply", reply)
	}

	history, _ := repo.History(session.ID)
	if len(history) != 2 {
		t.Fatalf("history length = %d, expected user turn to survive the failure", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "help" {
		t.Errorf("history[0] = %s/%q, expected the asked question", history[0].Role, history[0].Content)
	}
}

func TestSubmitFallbackOnNoUsableFragments(t *testing.T) {
	tests := []struct {
		name      string
		fragments []agent.Fragment
	}{
		{name: "empty stream", fragments: nil},
		{name: "whitespace only", fragments: []agent.Fragment{
			{Kind: agent.FragmentText, Text: "   "},
			{Kind: agent.FragmentText, Text: "\n"},
		}},
		{name: "tool fragments only", fragments: []agent.Fragment{
			{Kind: agent.FragmentTool, Text: "calculate"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat, _, session := newTestChat(&stubGenerator{reply: func(agent.Request) []agent.Fragment {
				return tt.fragments
			}})

			reply, err := chat.Submit(context.Background(), session, "question")
			if err != nil {
				t.Fatalf("Submit() returned error: %v", err)
			}
			if reply != FallbackReply {
				t.Errorf("reply = %q, expected fallback reply", reply)
			}
		})
	}
}

func TestSubmitIgnoresToolFragments(t *testing.T) {
	chat, _, session := newTestChat(&stubGenerator{reply: func(agent.Request) []agent.Fragment {
		return []agent.Fragment{
			{Kind: agent.FragmentText, Text: "The answer"},
			{Kind: agent.FragmentTool, Text: "calculate"},
			{Kind: agent.FragmentText, Text: "is 42."},
		}
	}})

	reply, err := chat.Submit(context.Background(), session, "what is 6*7?")
	if err != nil {
		t.Fatalf("Submit() returned error: %v", err)
	}
	if reply != "The answer is 42." {
		t.Errorf("reply = %q, tool fragments should not be surfaced", reply)
	}
}

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, req agent.Request) (<-chan agent.Fragment, error) {
	out := make(chan agent.Fragment)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out, nil
}

func TestSubmitFallbackOnTimeout(t *testing.T) {
	repo := store.NewMemorySessionRepository(0)
	session, _ := repo.Create("student", nil)
	chat := NewChatService(repo, slowGenerator{}, 20*time.Millisecond)

	reply, err := chat.Submit(context.Background(), session, "slow question")
	if err != nil {
		t.Fatalf("Submit() returned error: %v", err)
	}
	if reply != FallbackReply {
		t.Errorf("reply = %q, expected fallback reply after timeout", reply)
	}
}

func TestConcurrentSubmitsSameSessionStayPaired(t *testing.T) {
	generator := &stubGenerator{reply: func(req agent.Request) []agent.Fragment {
		last := req.History[len(req.History)-1]
		return []agent.Fragment{{Kind: agent.FragmentText, Text: "echo: " + last.Content}}
	}}
	chat, repo, session := newTestChat(generator)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := chat.Submit(context.Background(), session, fmt.Sprintf("q%d", i)); err != nil {
				t.Errorf("Submit() returned error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	history, _ := repo.History(session.ID)
	if len(history) != 2*workers {
		t.Fatalf("history length = %d, expected %d", len(history), 2*workers)
	}
	for i := 0; i < workers; i++ {
		user, reply := history[2*i], history[2*i+1]
		if user.Role != models.RoleUser {
			t.Fatalf("history[%d].Role = %s, expected user", 2*i, user.Role)
		}
		if reply.Role != models.RoleAgent {
			t.Fatalf("history[%d].Role = %s, expected agent", 2*i+1, reply.Role)
		}
		if reply.Content != "echo: "+user.Content {
			t.Errorf("history[%d] = %q does not answer history[%d] = %q, turns interleaved",
				2*i+1, reply.Content, 2*i, user.Content)
		}
	}
}

func TestConcurrentSubmitsDifferentSessionsAreIsolated(t *testing.T) {
	generator := &stubGenerator{reply: func(req agent.Request) []agent.Fragment {
		return []agent.Fragment{{Kind: agent.FragmentText, Text: fmt.Sprintf("history=%d", len(req.History))}}
	}}

	repo := store.NewMemorySessionRepository(0)
	chat := NewChatService(repo, generator, time.Second)

	const sessions = 8
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		session, _ := repo.Create("student", nil)
		wg.Add(1)
		go func(session *models.Session) {
			defer wg.Done()
			reply, err := chat.Submit(context.Background(), session, "hello")
			if err != nil {
				t.Errorf("Submit() returned error: %v", err)
				return
			}
			if reply != "history=1" {
				t.Errorf("reply = %q, session saw another session's history", reply)
			}
		}(session)
	}
	wg.Wait()
}
