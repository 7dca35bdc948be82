package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/expr-lang/expr"
	"github.com/invopop/jsonschema"
)

// AgentTool interface that all tools must implement
type AgentTool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) (string, error)
	GetAnthropicToolSpec() anthropic.ToolInputSchemaParam
}

func generateAnthropicSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

type CalculatorToolInput struct {
	Expression string `json:"expression" jsonschema:"required,description=Arithmetic expression to evaluate. Supports + - * / % ** and parentheses; functions sqrt/sin/cos/tan/log/log2/log10/abs/pow; constants pi/e/tau/phi"`
}

type CalculatorTool struct {
	env map[string]any
}

func NewCalculatorTool() CalculatorTool {
	return CalculatorTool{
		env: map[string]any{
			"pi":    math.Pi,
			"e":     math.E,
			"tau":   2 * math.Pi,
			"phi":   (1 + math.Sqrt(5)) / 2,
			"sqrt":  math.Sqrt,
			"sin":   math.Sin,
			"cos":   math.Cos,
			"tan":   math.Tan,
			"log":   math.Log,
			"log2":  math.Log2,
			"log10": math.Log10,
			"abs":   math.Abs,
			"pow":   math.Pow,
		},
	}
}

func (c CalculatorTool) Name() string {
	return "calculate"
}

func (c CalculatorTool) Description() string {
	return "Evaluates an arithmetic expression and returns the numeric result. Use this for any math the student asks about instead of computing it yourself"
}

func (c CalculatorTool) Call(ctx context.Context, input string) (string, error) {
	var params CalculatorToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to parse calculator tool input: %v", err)
	}

	if params.Expression == "" {
		return "", fmt.Errorf("expression is required")
	}

	program, err := expr.Compile(params.Expression, expr.Env(c.env))
	if err != nil {
		return "", fmt.Errorf("invalid expression %q: %v", params.Expression, err)
	}

	output, err := expr.Run(program, c.env)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate expression %q: %v", params.Expression, err)
	}

	type CalculatorResult struct {
		Expression string `json:"expression"`
		Result     any    `json:"result"`
	}

	result, err := json.Marshal(CalculatorResult{
		Expression: params.Expression,
		Result:     output,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal calculator result: %v", err)
	}

	return string(result), nil
}

func (c CalculatorTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[CalculatorToolInput]()
}

type CurrentTimeToolInput struct{}

type CurrentTimeTool struct{}

func NewCurrentTimeTool() CurrentTimeTool {
	return CurrentTimeTool{}
}

func (t CurrentTimeTool) Name() string {
	return "get_current_time"
}

func (t CurrentTimeTool) Description() string {
	return "Gets the current timestamp in ISO format"
}

func (t CurrentTimeTool) Call(ctx context.Context, input string) (string, error) {
	var params CurrentTimeToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to parse current time tool input: %v", err)
	}

	return time.Now().Format(time.RFC3339), nil
}

func (t CurrentTimeTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[CurrentTimeToolInput]()
}
