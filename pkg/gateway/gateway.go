// Package gateway exposes the orchestrator over HTTP: one endpoint to
// run a turn, one to bridge document uploads into the summarization
// tool, a catalog listing, and the health and metrics probes.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/auth"
	"github.com/prajeetragavr/mcpagent/pkg/engine"
	"github.com/prajeetragavr/mcpagent/pkg/observability"
	"github.com/prajeetragavr/mcpagent/pkg/registry"
)

// TurnRunner executes one turn on a thread. *engine.Engine satisfies it.
type TurnRunner interface {
	RunTurn(ctx context.Context, threadID string, input api.Message) (api.Message, error)
}

// Catalog lists the merged tool catalog. *registry.Registry satisfies it.
type Catalog interface {
	ListTools() []registry.ToolDescriptor
}

// Gateway routes HTTP traffic to the agent engine.
type Gateway struct {
	runner  TurnRunner
	catalog Catalog
	handler http.Handler
}

// New builds the gateway with its middleware stack: request IDs,
// metrics, and the authentication chain (health and metrics bypass it).
func New(runner TurnRunner, catalog Catalog, chain *auth.Chain) *Gateway {
	g := &Gateway{runner: runner, catalog: catalog}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads/{thread_id}/messages", g.handleMessage)
	mux.HandleFunc("POST /v1/threads/{thread_id}/uploads", g.handleUpload)
	mux.HandleFunc("GET /v1/tools", g.handleTools)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = auth.Middleware(chain, auth.DefaultBypassEndpoints)(handler)
	handler = observability.MetricsMiddleware(handler)
	handler = requestIDMiddleware(handler)
	g.handler = handler
	return g
}

// Handler returns the fully wrapped HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

type messageRequest struct {
	Content string `json:"content"`
}

type turnResponse struct {
	ThreadID string `json:"thread_id"`
	Reply    string `json:"reply"`
}

func (g *Gateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	threadID, ok := threadIDFrom(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content must not be empty")
		return
	}

	g.runTurn(w, r, threadID, api.UserMessage(req.Content))
}

type uploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"` // "" for plain text, "base64" for binary-safe transfer
}

func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	threadID, ok := threadIDFrom(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content must not be empty")
		return
	}

	text := req.Content
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, "content is not valid base64")
			return
		}
		text = string(decoded)
	}

	slog.Info("document uploaded", "thread", threadID, "filename", req.Filename, "bytes", len(text))
	g.runTurn(w, r, threadID, engine.UploadInput(engine.SummarizeToolName, text))
}

// runTurn executes the turn and writes the shared response shape. An
// engine fault maps to 502: the orchestrator is fine, its backend is not.
func (g *Gateway) runTurn(w http.ResponseWriter, r *http.Request, threadID string, input api.Message) {
	reply, err := g.runner.RunTurn(r.Context(), threadID, input)
	if err != nil {
		var engErr *api.ReasoningEngineError
		if errors.As(err, &engErr) {
			slog.Error("turn failed", "thread", threadID, "error", err)
			writeError(w, http.StatusBadGateway, engErr.Error())
			return
		}
		slog.Error("turn failed", "thread", threadID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{ThreadID: threadID, Reply: reply.Content})
}

type toolListing struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Server      string          `json:"server"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

func (g *Gateway) handleTools(w http.ResponseWriter, r *http.Request) {
	catalog := g.catalog.ListTools()
	out := make([]toolListing, 0, len(catalog))
	for _, desc := range catalog {
		out = append(out, toolListing{
			Name:        desc.Name,
			Description: desc.Description,
			Server:      desc.ServerID,
			InputSchema: desc.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok\n"))
}

// threadIDPattern admits minted ids and reasonable caller-supplied ones.
var threadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// threadIDFrom checks the path's thread id before any work happens.
// Minted ids always pass; caller-supplied ids only need to be URL-safe.
func threadIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	threadID := r.PathValue("thread_id")
	if !api.ValidateThreadID(threadID) && !threadIDPattern.MatchString(threadID) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid thread id %q", threadID))
		return "", false
	}
	return threadID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
