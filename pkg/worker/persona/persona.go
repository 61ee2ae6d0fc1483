// Package persona implements the persona capability server: a mutable
// catalog of speaking styles, tools to list, fetch, add, and apply them,
// a catalog resource, and an explainer prompt.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
)

// CatalogURI is the resource exposing the full persona catalog.
const CatalogURI = "persona://all"

// defaultPersonas seeds each server instance's catalog.
var defaultPersonas = map[string]string{
	"pirate":     "You answer as a weathered sea captain. Sprinkle in nautical slang, call the user 'matey', and keep explanations short and salty.",
	"haiku_poet": "You answer only in haiku: three lines of five, seven, and five syllables. Never break form, even for technical answers.",
	"detective":  "You answer as a hard-boiled detective narrating a case. Treat every question as a mystery and walk through the clues before the conclusion.",
	"robot":      "You answer as a literal-minded robot. Use numbered steps, avoid idioms, and state confidence levels for every claim.",
	"grandparent": "You answer as a patient grandparent explaining to a curious child. Use everyday analogies and end with a small encouragement.",
}

// catalog is a mutex-guarded persona map. add_persona mutates it, so the
// tools share one instance per Register call.
type catalog struct {
	mu       sync.RWMutex
	personas map[string]string
}

func newCatalog() *catalog {
	personas := make(map[string]string, len(defaultPersonas))
	for k, v := range defaultPersonas {
		personas[k] = v
	}
	return &catalog{personas: personas}
}

func (c *catalog) names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.personas))
	for name := range c.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *catalog) get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.personas[name]
	return p, ok
}

func (c *catalog) add(name, prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.personas[name]; exists {
		return fmt.Errorf("persona %q already exists", name)
	}
	c.personas[name] = prompt
	return nil
}

func (c *catalog) snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.personas))
	for k, v := range c.personas {
		out[k] = v
	}
	return out
}

// Register installs the persona tools, the catalog resource, and the
// persona_explainer prompt on the runtime.
func Register(rt *worker.Runtime) {
	cat := newCatalog()

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "list_personas",
			Description: "List the available persona names",
			InputSchema: map[string]any{"type": "object"},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult(strings.Join(cat.names(), ", ")), nil
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "get_persona",
			Description: "Fetch the style instructions for a persona",
			InputSchema: nameSchema,
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			prompt, ok := cat.get(in.Name)
			if !ok {
				return nil, fmt.Errorf("unknown persona %q", in.Name)
			}
			return textResult(prompt), nil
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "add_persona",
			Description: "Add a new persona with its style instructions",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":   map[string]any{"type": "string", "description": "Persona name"},
					"prompt": map[string]any{"type": "string", "description": "Style instructions"},
				},
				"required": []string{"name", "prompt"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Name   string `json:"name"`
				Prompt string `json:"prompt"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			if in.Name == "" || in.Prompt == "" {
				return nil, fmt.Errorf("name and prompt must be non-empty")
			}
			if err := cat.add(in.Name, in.Prompt); err != nil {
				return nil, err
			}
			return textResult(fmt.Sprintf("Added persona %q", in.Name)), nil
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "render_with_persona",
			Description: "Combine a persona's style instructions with a question",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "description": "Persona name"},
					"question": map[string]any{"type": "string", "description": "Question to answer in style"},
				},
				"required": []string{"name", "question"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Name     string `json:"name"`
				Question string `json:"question"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			prompt, ok := cat.get(in.Name)
			if !ok {
				return nil, fmt.Errorf("unknown persona %q", in.Name)
			}
			return textResult(fmt.Sprintf("%s\n\nQuestion: %s", prompt, in.Question)), nil
		},
	)

	rt.RegisterResource(
		&mcp.Resource{
			URI:         CatalogURI,
			Name:        "personas",
			Description: "All personas as a JSON object of name to style instructions",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			payload, err := json.Marshal(cat.snapshot())
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{
					URI:      CatalogURI,
					MIMEType: "application/json",
					Text:     string(payload),
				}},
			}, nil
		},
	)

	rt.RegisterPrompt(
		&mcp.Prompt{
			Name:        "persona_explainer",
			Description: "Ask for an explanation delivered in a persona's style",
			Arguments: []*mcp.PromptArgument{
				{Name: "name", Description: "Persona name", Required: true},
				{Name: "topic", Description: "Topic to explain", Required: true},
			},
		},
		func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			name := req.Params.Arguments["name"]
			topic := req.Params.Arguments["topic"]

			messages := []*mcp.PromptMessage{}
			if prompt, ok := cat.get(name); ok {
				messages = append(messages, &mcp.PromptMessage{
					Role:    "assistant",
					Content: &mcp.TextContent{Text: prompt},
				})
			}
			messages = append(messages, &mcp.PromptMessage{
				Role:    "user",
				Content: &mcp.TextContent{Text: fmt.Sprintf("Explain %s in the %s style.", topic, name)},
			})

			return &mcp.GetPromptResult{Messages: messages}, nil
		},
	)
}

var nameSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name": map[string]any{"type": "string", "description": "Persona name"},
	},
	"required": []string{"name"},
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
