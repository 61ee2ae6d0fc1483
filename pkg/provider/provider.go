// Package provider abstracts the reasoning backend the agent loop talks
// to. The only shipped adapter speaks the OpenAI Chat Completions wire
// format, which covers vLLM, LiteLLM, Groq and the hosted OpenAI API.
package provider

import (
	"context"
	"encoding/json"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

// Provider abstracts a reasoning inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "chat").
	Name() string

	// Complete performs one non-streaming inference round.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// ToolDef describes one callable tool offered to the reasoning backend.
// Parameters is a JSON schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request is one inference round: the working transcript plus the tools
// the backend may call.
type Request struct {
	Model    string
	Messages []api.Message
	Tools    []ToolDef
}

// Response is the backend's reply: either a final assistant message or an
// assistant message carrying tool calls.
type Response struct {
	Message      api.Message
	FinishReason string
	Usage        Usage
}

// Usage holds token accounting reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
