package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

// ChatConfig holds settings for the Chat Completions adapter.
type ChatConfig struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	// The adapter appends /v1/chat/completions.
	BaseURL string

	// APIKey is sent as a Bearer token when set.
	APIKey string

	// Timeout bounds each inference round. Defaults to 120s.
	Timeout time.Duration
}

// ChatProvider implements Provider for OpenAI-compatible Chat Completions
// backends.
type ChatProvider struct {
	cfg    ChatConfig
	client *http.Client
}

// Ensure ChatProvider implements Provider at compile time.
var _ Provider = (*ChatProvider)(nil)

// NewChat creates a ChatProvider with the given configuration.
func NewChat(cfg ChatConfig) (*ChatProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chat: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &ChatProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider identifier.
func (p *ChatProvider) Name() string {
	return "chat"
}

// Complete performs non-streaming inference against the Chat Completions
// endpoint.
func (p *ChatProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	chatReq := translateRequest(req)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat: marshaling request: %w", err)
	}

	url := p.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat: backend request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("chat: backend returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("chat: parsing backend response: %w", err)
	}

	return translateResponse(&chatResp)
}

// Close releases provider resources.
func (p *ChatProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Chat Completions wire types. These mirror the OpenAI API format.

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string          `json:"type"`
	Function chatFunctionDef `json:"function"`
}

type chatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// translateRequest converts a Request into the Chat Completions format.
func translateRequest(req *Request) chatCompletionRequest {
	cr := chatCompletionRequest{
		Model:    req.Model,
		Messages: make([]chatMessage, 0, len(req.Messages)),
	}

	for _, m := range req.Messages {
		cm := chatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		cr.Messages = append(cr.Messages, cm)
	}

	for _, td := range req.Tools {
		cr.Tools = append(cr.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}

	return cr
}

// translateResponse converts a Chat Completions response into a Response.
// A response with no choices is a backend fault.
func translateResponse(resp *chatCompletionResponse) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat: backend returned no choices")
	}

	choice := resp.Choices[0]
	msg := api.Message{
		Role:    api.Role(choice.Message.Role),
		Content: choice.Message.Content,
	}
	if msg.Role == "" {
		msg.Role = api.RoleAssistant
	}

	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	out := &Response{
		Message:      msg,
		FinishReason: choice.FinishReason,
	}
	if resp.Usage != nil {
		out.Usage = Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
