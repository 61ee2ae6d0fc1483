// Package registry maintains connections to the configured capability
// servers and exposes their merged tool catalog to the agent loop.
//
// Connection failures are recoverable data: a server that cannot be
// reached is recorded and surfaced through Failures, while the remaining
// servers serve traffic. A tool name claimed by two servers is the one
// fatal condition, because invocation routing would be ambiguous.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/observability"
)

// ToolDescriptor describes one tool in the merged catalog. Descriptors
// are immutable after Connect.
type ToolDescriptor struct {
	Name        string
	Description string
	ServerID    string
	InputSchema json.RawMessage
}

// Result is the outcome of one tool invocation. Tool-level failures
// (unknown name, bad arguments, transport errors, handler faults) are
// reported through IsError, never as Go errors.
type Result struct {
	Content string
	IsError bool
}

// ConnectionFailure records a server that could not be connected or
// interrogated at startup.
type ConnectionFailure struct {
	ServerID string
	Err      error
}

// Registry holds the connected capability servers and their merged
// catalog. Safe for concurrent use after Connect returns.
type Registry struct {
	servers  []*serverClient           // declaration order
	byName   map[string]*serverClient  // server name -> client
	catalog  map[string]ToolDescriptor // tool name -> descriptor
	order    []string                  // sorted tool names
	failures []ConnectionFailure
}

// Connect connects to every configured server, discovers each server's
// tool catalog, and merges the catalogs. Per-server connection or
// discovery failures are recorded and skipped. A duplicate tool name
// across two servers aborts with *api.RegistrationError.
func Connect(ctx context.Context, cfgs []ServerConfig) (*Registry, error) {
	return connect(ctx, cfgs, nil)
}

// connect is the testable core of Connect. transports, when non-nil, maps
// server names to pre-built transports and bypasses config-based creation.
func connect(ctx context.Context, cfgs []ServerConfig, transports map[string]mcp.Transport) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]*serverClient, len(cfgs)),
		catalog: make(map[string]ToolDescriptor),
	}

	for _, cfg := range cfgs {
		client := newServerClient(cfg)

		if err := client.connect(ctx, transports[cfg.Name]); err != nil {
			slog.Warn("capability server unavailable", "server", cfg.Name, "error", err)
			r.failures = append(r.failures, ConnectionFailure{ServerID: cfg.Name, Err: err})
			continue
		}

		descs, err := client.listTools(ctx)
		if err != nil {
			slog.Warn("capability discovery failed", "server", cfg.Name, "error", err)
			r.failures = append(r.failures, ConnectionFailure{ServerID: cfg.Name, Err: err})
			client.close()
			continue
		}

		for _, desc := range descs {
			if existing, ok := r.catalog[desc.Name]; ok {
				r.Close()
				client.close()
				return nil, &api.RegistrationError{
					Tool:    desc.Name,
					ServerA: existing.ServerID,
					ServerB: cfg.Name,
				}
			}
			r.catalog[desc.Name] = desc
			r.order = append(r.order, desc.Name)
		}

		r.servers = append(r.servers, client)
		r.byName[cfg.Name] = client
		slog.Info("capability server connected", "server", cfg.Name, "tools", len(descs))
	}

	sort.Strings(r.order)
	return r, nil
}

// ListTools returns the merged catalog in stable name order. The returned
// slice is a copy; repeated calls observe the same catalog.
func (r *Registry) ListTools() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.catalog[name])
	}
	return out
}

// ServerNames returns the connected server names in declaration order.
func (r *Registry) ServerNames() []string {
	names := make([]string, 0, len(r.servers))
	for _, c := range r.servers {
		names = append(names, c.cfg.Name)
	}
	return names
}

// Failures returns the connection failures recorded at Connect.
func (r *Registry) Failures() []ConnectionFailure {
	return r.failures
}

// Invoke routes a tool call to the owning server. Arguments are checked
// against the descriptor's input schema before dispatch. Every failure
// mode produces an error-flagged Result; Invoke never returns a Go error
// for tool-level problems.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) Result {
	desc, ok := r.catalog[name]
	if !ok {
		return errorResult(fmt.Sprintf("unknown tool %q", name))
	}

	if err := validateArgs(desc.InputSchema, args); err != nil {
		observability.ToolInvocations.WithLabelValues(desc.ServerID, name, "invalid_args").Inc()
		return errorResult(fmt.Sprintf("invalid arguments for %q: %v", name, err))
	}

	start := time.Now()
	result := r.byName[desc.ServerID].callTool(ctx, name, args)
	observability.ToolDuration.WithLabelValues(desc.ServerID, name).Observe(time.Since(start).Seconds())

	status := "ok"
	if result.IsError {
		status = "error"
	}
	observability.ToolInvocations.WithLabelValues(desc.ServerID, name, status).Inc()
	return result
}

// Resources lists the resources advertised by one connected server.
func (r *Registry) Resources(ctx context.Context, serverID string) ([]*mcp.Resource, error) {
	client, ok := r.byName[serverID]
	if !ok {
		return nil, fmt.Errorf("unknown server %q", serverID)
	}
	return client.listResources(ctx)
}

// ReadResource reads one resource from a connected server.
func (r *Registry) ReadResource(ctx context.Context, serverID, uri string) (string, error) {
	client, ok := r.byName[serverID]
	if !ok {
		return "", fmt.Errorf("unknown server %q", serverID)
	}
	return client.readResource(ctx, uri)
}

// GetPrompt renders a prompt template on a connected server.
func (r *Registry) GetPrompt(ctx context.Context, serverID, name string, args map[string]string) ([]api.Message, error) {
	client, ok := r.byName[serverID]
	if !ok {
		return nil, fmt.Errorf("unknown server %q", serverID)
	}
	return client.getPrompt(ctx, name, args)
}

// Close closes every connected session. Stdio transports terminate their
// subprocess on close.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.servers {
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", c.cfg.Name, err))
		}
	}
	return errors.Join(errs...)
}

func errorResult(msg string) Result {
	return Result{Content: msg, IsError: true}
}

// convertTool converts an MCP Tool to a ToolDescriptor.
func convertTool(serverID string, t *mcp.Tool) (ToolDescriptor, error) {
	var schema json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return ToolDescriptor{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		schema = data
	}

	return ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		ServerID:    serverID,
		InputSchema: schema,
	}, nil
}

// convertResult flattens an MCP CallToolResult into a Result, keeping
// only text content.
func convertResult(result *mcp.CallToolResult) Result {
	var output string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if output != "" {
				output += "\n"
			}
			output += tc.Text
		}
	}
	return Result{Content: output, IsError: result.IsError}
}
