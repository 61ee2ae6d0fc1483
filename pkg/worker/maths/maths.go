// Package maths implements the arithmetic capability server: binary
// operations, expression evaluation, a constants resource, and an
// explanation prompt.
package maths

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
)

// ConstantsURI is the resource listing the mathematical constants the
// server knows.
const ConstantsURI = "math://constants"

var constants = map[string]float64{
	"pi":           3.141592653589793,
	"e":            2.718281828459045,
	"golden_ratio": 1.618033988749895,
	"sqrt2":        1.4142135623730951,
}

type binaryArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

var binarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"a": map[string]any{"type": "number", "description": "First operand"},
		"b": map[string]any{"type": "number", "description": "Second operand"},
	},
	"required": []string{"a", "b"},
}

// Register installs the arithmetic tools, the constants resource, and the
// explain_calculation prompt on the runtime.
func Register(rt *worker.Runtime) {
	rt.RegisterTool(
		&mcp.Tool{Name: "add", Description: "Add two numbers", InputSchema: binarySchema},
		binaryTool(func(a, b float64) (float64, error) { return a + b, nil }),
	)
	rt.RegisterTool(
		&mcp.Tool{Name: "subtract", Description: "Subtract b from a", InputSchema: binarySchema},
		binaryTool(func(a, b float64) (float64, error) { return a - b, nil }),
	)
	rt.RegisterTool(
		&mcp.Tool{Name: "multiply", Description: "Multiply two numbers", InputSchema: binarySchema},
		binaryTool(func(a, b float64) (float64, error) { return a * b, nil }),
	)
	rt.RegisterTool(
		&mcp.Tool{Name: "divide", Description: "Divide a by b", InputSchema: binarySchema},
		binaryTool(func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return a / b, nil
		}),
	)
	rt.RegisterTool(
		&mcp.Tool{
			Name:        "eval_expr",
			Description: "Evaluate an arithmetic expression with +, -, *, / and parentheses",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{"type": "string", "description": "Expression to evaluate"},
				},
				"required": []string{"expression"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Expression string `json:"expression"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			v, err := evalExpr(in.Expression)
			if err != nil {
				return nil, err
			}
			return textResult(formatNumber(v)), nil
		},
	)

	rt.RegisterResource(
		&mcp.Resource{
			URI:         ConstantsURI,
			Name:        "constants",
			Description: "Mathematical constants as a JSON object",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			payload, err := json.Marshal(constants)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{
					URI:      ConstantsURI,
					MIMEType: "application/json",
					Text:     string(payload),
				}},
			}, nil
		},
	)

	rt.RegisterPrompt(
		&mcp.Prompt{
			Name:        "explain_calculation",
			Description: "Explain how to evaluate an arithmetic expression step by step",
			Arguments: []*mcp.PromptArgument{
				{Name: "expression", Description: "The expression to explain", Required: true},
			},
		},
		func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			expr := req.Params.Arguments["expression"]
			return &mcp.GetPromptResult{
				Messages: []*mcp.PromptMessage{{
					Role: "user",
					Content: &mcp.TextContent{
						Text: fmt.Sprintf("Explain step by step, following operator precedence, how to evaluate: %s", expr),
					},
				}},
			}, nil
		},
	)
}

func binaryTool(op func(a, b float64) (float64, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in binaryArgs
		if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		v, err := op(in.A, in.B)
		if err != nil {
			return nil, err
		}
		return textResult(formatNumber(v)), nil
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
