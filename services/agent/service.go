package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"studybuddy/models"
)

// maxToolRounds bounds how many tool-call round trips a single turn may
// take before the backend gives up and returns what it has.
const maxToolRounds = 5

// AnthropicGenerator answers turns with the Anthropic Messages API,
// running the tool loop internally. Tool activity is emitted as tool
// fragments so consumers can see that something happened without
// surfacing it to the user.
type AnthropicGenerator struct {
	client      *anthropic.Client
	model       anthropic.Model
	instruction string
	tools       []AgentTool
}

func NewAnthropicGenerator(apiKey, model, instruction string) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	if model == "" {
		model = string(anthropic.ModelClaude4Sonnet20250514)
	}
	if instruction == "" {
		instruction = StudyBuddySystemPrompt
	}

	tools := []AgentTool{
		NewCalculatorTool(),
		NewCurrentTimeTool(),
	}

	return &AnthropicGenerator{
		client:      &client,
		model:       anthropic.Model(model),
		instruction: instruction,
		tools:       tools,
	}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (<-chan Fragment, error) {
	out := make(chan Fragment)
	go func() {
		defer close(out)
		g.run(ctx, req, out)
	}()
	return out, nil
}

func (g *AnthropicGenerator) run(ctx context.Context, req Request, out chan<- Fragment) {
	messages := g.convertHistory(req.History)
	toolSpecs := g.buildToolSpecs()

	for round := 0; round < maxToolRounds; round++ {
		response, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     g.model,
			MaxTokens: 4096,
			System:    []anthropic.TextBlockParam{{Text: g.instruction}},
			Messages:  messages,
			Tools:     toolSpecs,
		})
		if err != nil {
			log.Printf("[ERROR] Failed to call Anthropic API: %v", err)
			return
		}

		toolUses := []anthropic.ToolUseBlock{}
		for _, block := range response.Content {
			switch block := block.AsAny().(type) {
			case anthropic.TextBlock:
				if !emit(ctx, out, Fragment{Kind: FragmentText, Text: block.Text}) {
					return
				}
			case anthropic.ToolUseBlock:
				toolUses = append(toolUses, block)
			}
		}

		if len(toolUses) == 0 {
			return
		}

		messages = append(messages, g.assistantMessage(response))

		resultBlocks := []anthropic.ContentBlockParamUnion{}
		for _, toolUse := range toolUses {
			log.Printf("[INFO] Executing tool: %s with arguments: %v", toolUse.Name, toolUse.Input)

			if !emit(ctx, out, Fragment{Kind: FragmentTool, Text: toolUse.Name}) {
				return
			}

			inputJSON, _ := json.Marshal(toolUse.Input)
			result, err := g.executeTool(ctx, toolUse.Name, string(inputJSON))
			if err != nil {
				log.Printf("[ERROR] Tool execution failed: %v", err)
				result = fmt.Sprintf("Error: %v", err)
			}

			resultBlocks = append(resultBlocks, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: toolUse.ID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: result}},
					},
				},
			})
		}
		messages = append(messages, anthropic.NewUserMessage(resultBlocks...))
	}

	log.Printf("[ERROR] Tool loop exceeded %d rounds, returning accumulated text", maxToolRounds)
}

// assistantMessage rebuilds the API response as a request param so the
// tool results that follow it have their matching tool_use blocks.
func (g *AnthropicGenerator) assistantMessage(response *anthropic.Message) anthropic.MessageParam {
	contentBlocks := []anthropic.ContentBlockParamUnion{}

	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			if block.Text != "" {
				contentBlocks = append(contentBlocks, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Text: block.Text},
				})
			}
		case anthropic.ToolUseBlock:
			contentBlocks = append(contentBlocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				},
			})
		}
	}

	return anthropic.NewAssistantMessage(contentBlocks...)
}

func (g *AnthropicGenerator) convertHistory(history []models.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, turn := range history {
		switch turn.Role {
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		case models.RoleAgent:
			if turn.Content == "" {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}

	return messages
}

func (g *AnthropicGenerator) buildToolSpecs() []anthropic.ToolUnionParam {
	var toolSpecs []anthropic.ToolUnionParam

	for _, tool := range g.tools {
		toolSpecs = append(toolSpecs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: tool.GetAnthropicToolSpec(),
			},
		})
	}

	return toolSpecs
}

func (g *AnthropicGenerator) executeTool(ctx context.Context, toolName, arguments string) (string, error) {
	for _, tool := range g.tools {
		if tool.Name() == toolName {
			return tool.Call(ctx, arguments)
		}
	}
	return "", fmt.Errorf("tool %s not found", toolName)
}

func emit(ctx context.Context, out chan<- Fragment, fragment Fragment) bool {
	select {
	case out <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}
