package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"studybuddy/models"
)

// OpenAIGenerator answers turns with an OpenAI chat model through
// langchaingo. The response streams internally; the assembled text is
// emitted as a single fragment once the stream completes, since partial
// token chunks are not meaningful fragments on their own.
type OpenAIGenerator struct {
	llm         llms.Model
	instruction string
}

func NewOpenAIGenerator(apiKey, model, instruction string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if model == "" {
		model = "gpt-4o-mini"
	}
	if instruction == "" {
		instruction = StudyBuddySystemPrompt
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &OpenAIGenerator{
		llm:         llm,
		instruction: instruction,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (<-chan Fragment, error) {
	out := make(chan Fragment)

	go func() {
		defer close(out)

		content := []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, g.instruction),
		}
		for _, turn := range req.History {
			role := schema.ChatMessageTypeHuman
			if turn.Role == models.RoleAgent {
				role = schema.ChatMessageTypeAI
			}
			content = append(content, llms.TextParts(role, turn.Content))
		}

		var reply strings.Builder
		_, err := g.llm.GenerateContent(ctx, content,
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				reply.Write(chunk)
				return nil
			}),
		)
		if err != nil {
			log.Printf("[ERROR] Failed to call OpenAI API: %v", err)
			return
		}

		emit(ctx, out, Fragment{Kind: FragmentText, Text: reply.String()})
	}()

	return out, nil
}
