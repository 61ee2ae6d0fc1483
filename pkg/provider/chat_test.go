package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

func TestNewChat_RequiresBaseURL(t *testing.T) {
	if _, err := NewChat(ChatConfig{}); err == nil {
		t.Fatal("NewChat() with empty BaseURL should fail")
	}
}

func TestComplete_FinalAnswer(t *testing.T) {
	var gotBody chatCompletionRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatChoice{{
				Message:      chatMessage{Role: "assistant", Content: "The answer is 42."},
				FinishReason: "stop",
			}},
			Usage: &chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	p, err := NewChat(ChatConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewChat() error: %v", err)
	}
	defer p.Close()

	resp, err := p.Complete(context.Background(), &Request{
		Model: "test-model",
		Messages: []api.Message{
			api.SystemMessage("You are helpful."),
			api.UserMessage("What is the answer?"),
		},
		Tools: []ToolDef{{
			Name:        "add",
			Description: "Add two numbers",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if resp.Message.Role != api.RoleAssistant {
		t.Errorf("message role = %q, want assistant", resp.Message.Role)
	}
	if resp.Message.Content != "The answer is 42." {
		t.Errorf("message content = %q", resp.Message.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want \"stop\"", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage total = %d, want 15", resp.Usage.TotalTokens)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization header = %q, want Bearer token", gotAuth)
	}
	if gotBody.Model != "test-model" {
		t.Errorf("wire model = %q, want \"test-model\"", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("wire messages = %+v, want system then user", gotBody.Messages)
	}
	if len(gotBody.Tools) != 1 || gotBody.Tools[0].Function.Name != "add" {
		t.Errorf("wire tools = %+v, want one function named add", gotBody.Tools)
	}
	if gotBody.Stream {
		t.Error("wire stream = true, want false")
	}
}

func TestComplete_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatChoice{{
				Message: chatMessage{
					Role: "assistant",
					ToolCalls: []chatToolCall{
						{ID: "call_1", Type: "function", Function: chatFunctionCall{Name: "add", Arguments: `{"a":3,"b":5}`}},
						{Type: "function", Function: chatFunctionCall{Name: "multiply", Arguments: `{"a":8,"b":3}`}},
					},
				},
				FinishReason: "tool_calls",
			}},
		})
	}))
	defer srv.Close()

	p, err := NewChat(ChatConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewChat() error: %v", err)
	}
	defer p.Close()

	resp, err := p.Complete(context.Background(), &Request{Messages: []api.Message{api.UserMessage("calc")}})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if len(resp.Message.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(resp.Message.ToolCalls))
	}
	if resp.Message.ToolCalls[0].ID != "call_1" || resp.Message.ToolCalls[0].Name != "add" {
		t.Errorf("tool call 0 = %+v", resp.Message.ToolCalls[0])
	}
	// A backend that omits call ids gets minted ones.
	if !strings.HasPrefix(resp.Message.ToolCalls[1].ID, "call_") {
		t.Errorf("tool call 1 id = %q, want minted call_ id", resp.Message.ToolCalls[1].ID)
	}
}

func TestComplete_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, _ := NewChat(ChatConfig{BaseURL: srv.URL})
	defer p.Close()

	_, err := p.Complete(context.Background(), &Request{Messages: []api.Message{api.UserMessage("hi")}})
	if err == nil {
		t.Fatal("Complete() = nil error, want backend error")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %q, want status code in message", err.Error())
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{})
	}))
	defer srv.Close()

	p, _ := NewChat(ChatConfig{BaseURL: srv.URL})
	defer p.Close()

	if _, err := p.Complete(context.Background(), &Request{Messages: []api.Message{api.UserMessage("hi")}}); err == nil {
		t.Fatal("Complete() = nil error, want no-choices error")
	}
}
