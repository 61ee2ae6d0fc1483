package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/auth"
	"github.com/prajeetragavr/mcpagent/pkg/registry"
)

type fakeRunner struct {
	threadID string
	input    api.Message
	reply    api.Message
	err      error
}

func (f *fakeRunner) RunTurn(ctx context.Context, threadID string, input api.Message) (api.Message, error) {
	f.threadID = threadID
	f.input = input
	if f.err != nil {
		return api.Message{}, f.err
	}
	return f.reply, nil
}

type fakeCatalog struct {
	tools []registry.ToolDescriptor
}

func (f *fakeCatalog) ListTools() []registry.ToolDescriptor { return f.tools }

func openChain() *auth.Chain {
	return &auth.Chain{DefaultDecision: auth.Yes}
}

func newTestGateway(runner TurnRunner, catalog Catalog) *httptest.Server {
	return httptest.NewServer(New(runner, catalog, openChain()).Handler())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestPostMessage(t *testing.T) {
	runner := &fakeRunner{reply: api.AssistantMessage("the answer is 42")}
	srv := newTestGateway(runner, &fakeCatalog{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/messages", `{"content":"what is the answer?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[turnResponse](t, resp)
	if body.ThreadID != "thread_abc" || body.Reply != "the answer is 42" {
		t.Fatalf("body = %+v", body)
	}

	if runner.input.Role != api.RoleUser || runner.input.Content != "what is the answer?" {
		t.Fatalf("runner input = %+v", runner.input)
	}
}

func TestPostMessage_BadRequests(t *testing.T) {
	srv := newTestGateway(&fakeRunner{}, &fakeCatalog{})
	defer srv.Close()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty content", "/v1/threads/thread_abc/messages", `{"content":""}`},
		{"invalid json", "/v1/threads/thread_abc/messages", `{not json`},
		{"bad thread id", "/v1/threads/bad%20id/messages", `{"content":"hi"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+tc.path, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestPostMessage_EngineFailureMapsTo502(t *testing.T) {
	runner := &fakeRunner{err: &api.ReasoningEngineError{Err: errors.New("backend down")}}
	srv := newTestGateway(runner, &fakeCatalog{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/messages", `{"content":"hi"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if !strings.Contains(body["error"], "backend down") {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestPostMessage_StoreFailureMapsTo500(t *testing.T) {
	runner := &fakeRunner{err: errors.New("disk full")}
	srv := newTestGateway(runner, &fakeCatalog{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/messages", `{"content":"hi"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	// Internal detail stays out of the response body.
	body := decodeBody[map[string]string](t, resp)
	if strings.Contains(body["error"], "disk full") {
		t.Fatalf("error leaked internals: %q", body["error"])
	}
}

func TestUpload_PlainText(t *testing.T) {
	runner := &fakeRunner{reply: api.AssistantMessage("2 lines, 4 words.")}
	srv := newTestGateway(runner, &fakeCatalog{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/uploads",
		`{"filename":"notes.txt","content":"hello world\nsecond line"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	want := "I want to use the 'summarize_document' tool with input: hello world\nsecond line"
	if runner.input.Content != want {
		t.Fatalf("runner input = %q, want %q", runner.input.Content, want)
	}
}

func TestUpload_Base64(t *testing.T) {
	runner := &fakeRunner{reply: api.AssistantMessage("summarized")}
	srv := newTestGateway(runner, &fakeCatalog{})
	defer srv.Close()

	encoded := base64.StdEncoding.EncodeToString([]byte("binary safe text"))
	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/uploads",
		`{"filename":"doc.txt","content":"`+encoded+`","encoding":"base64"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasSuffix(runner.input.Content, "binary safe text") {
		t.Fatalf("runner input = %q", runner.input.Content)
	}

	resp = postJSON(t, srv.URL+"/v1/threads/thread_abc/uploads",
		`{"filename":"doc.txt","content":"!!! not base64 !!!","encoding":"base64"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid base64 status = %d, want 400", resp.StatusCode)
	}
}

func TestListTools(t *testing.T) {
	catalog := &fakeCatalog{tools: []registry.ToolDescriptor{
		{Name: "add", Description: "Add two numbers", ServerID: "maths", InputSchema: json.RawMessage(`{"type":"object"}`)},
		{Name: "read_file", ServerID: "files"},
	}}
	srv := newTestGateway(&fakeRunner{}, catalog)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/tools")
	if err != nil {
		t.Fatalf("GET /v1/tools: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[struct {
		Tools []toolListing `json:"tools"`
	}](t, resp)
	if len(body.Tools) != 2 {
		t.Fatalf("got %d tools", len(body.Tools))
	}
	if body.Tools[0].Name != "add" || body.Tools[0].Server != "maths" {
		t.Fatalf("tools[0] = %+v", body.Tools[0])
	}
}

func TestAuthEnforcedOutsideBypass(t *testing.T) {
	chain := &auth.Chain{Authenticators: []auth.Authenticator{
		auth.NewAPIKey([]auth.KeyEntry{{Key: "sk-test", Subject: "svc"}}),
	}}
	srv := httptest.NewServer(New(&fakeRunner{reply: api.AssistantMessage("ok")}, &fakeCatalog{}, chain).Handler())
	defer srv.Close()

	// No credentials: rejected.
	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/messages", `{"content":"hi"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	// Health probe bypasses the chain.
	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", health.StatusCode)
	}

	// Valid key admits the request.
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/threads/thread_abc/messages",
		strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Authorization", "Bearer sk-test")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed request: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("authed status = %d", authed.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestGateway(&fakeRunner{reply: api.AssistantMessage("ok")}, &fakeCatalog{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/threads/thread_abc/messages", `{"content":"hi"}`)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("response missing generated X-Request-ID")
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/threads/thread_abc/messages",
		strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("X-Request-ID", "corr-123")
	echoed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer echoed.Body.Close()
	if echoed.Header.Get("X-Request-ID") != "corr-123" {
		t.Fatalf("X-Request-ID = %q, want corr-123", echoed.Header.Get("X-Request-ID"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestGateway(&fakeRunner{}, &fakeCatalog{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
