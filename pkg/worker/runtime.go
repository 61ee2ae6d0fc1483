// Package worker provides the runtime shared by all capability server
// binaries: tool, resource, and prompt registration, a bounded execution
// pool, sandboxed path resolution, and cached schema metadata.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultMaxConcurrent = 4
	minConcurrent        = 2
	maxConcurrent        = 4

	shutdownTimeout = 10 * time.Second
)

// Options configures a worker runtime.
type Options struct {
	// MaxConcurrent bounds the number of tool handlers executing at
	// once. Values are clamped to [2, 4]; zero selects the default of 4.
	MaxConcurrent int
}

// Runtime wraps an mcp.Server with the worker conventions: every tool
// handler runs on a bounded pool and never leaks a fault across the
// transport.
type Runtime struct {
	name   string
	server *mcp.Server
	sem    chan struct{}
}

// New creates a worker runtime for a server with the given name and
// version.
func New(name, version string, opts Options) *Runtime {
	n := opts.MaxConcurrent
	if n == 0 {
		n = defaultMaxConcurrent
	}
	if n < minConcurrent {
		n = minConcurrent
	}
	if n > maxConcurrent {
		n = maxConcurrent
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: name, Version: version},
		nil,
	)

	return &Runtime{
		name:   name,
		server: server,
		sem:    make(chan struct{}, n),
	}
}

// RegisterTool adds a tool whose handler is wrapped to acquire a slot on
// the bounded pool and to convert panics and returned errors into
// error-flagged results. Callers always receive a CallToolResult.
func (r *Runtime) RegisterTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	r.server.AddTool(tool, r.wrap(tool.Name, handler))
}

// RegisterResource adds a resource. Resource producers are pure reads of
// external state and bypass the pool.
func (r *Runtime) RegisterResource(res *mcp.Resource, handler mcp.ResourceHandler) {
	r.server.AddResource(res, handler)
}

// RegisterPrompt adds a prompt template.
func (r *Runtime) RegisterPrompt(prompt *mcp.Prompt, handler mcp.PromptHandler) {
	r.server.AddPrompt(prompt, handler)
}

// wrap bounds handler concurrency and folds every failure mode into an
// error-flagged result.
func (r *Runtime) wrap(toolName string, handler mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			return errResult(fmt.Sprintf("tool %q: %v", toolName, ctx.Err())), nil
		}

		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("tool handler panicked", "tool", toolName, "panic", rec)
				result = errResult(fmt.Sprintf("tool %q: internal error: %v", toolName, rec))
				err = nil
			}
		}()

		result, err = handler(ctx, req)
		if err != nil {
			return errResult(fmt.Sprintf("tool %q: %v", toolName, err)), nil
		}
		return result, nil
	}
}

// Serve runs the server on the given transport until ctx is cancelled or
// the transport closes.
func (r *Runtime) Serve(ctx context.Context, transport mcp.Transport) error {
	slog.Info("worker serving", "server", r.name)
	return r.server.Run(ctx, transport)
}

// ServeStdio runs the server over the process's stdin/stdout.
func (r *Runtime) ServeStdio(ctx context.Context) error {
	return r.Serve(ctx, &mcp.StdioTransport{})
}

// ServeHTTP exposes the server over streamable HTTP on addr, with the MCP
// endpoint at /mcp and a health probe at /healthz. It blocks until ctx is
// cancelled, then shuts down gracefully.
func (r *Runtime) ServeHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return r.server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("worker serving", "server", r.name, "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
