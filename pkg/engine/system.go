package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/registry"
)

// ResourceSource is the resource surface the aggregator reads.
// *registry.Registry satisfies it.
type ResourceSource interface {
	ServerNames() []string
	Resources(ctx context.Context, serverID string) ([]*mcp.Resource, error)
	ReadResource(ctx context.Context, serverID, uri string) (string, error)
	Failures() []registry.ConnectionFailure
}

// LoadSystemContext reads every resource advertised by the connected
// servers and renders them as system messages, one per resource, in
// server declaration order. Discovery and read failures become system
// messages themselves, as do the connection failures recorded at
// startup, so the backend knows what it cannot see.
func LoadSystemContext(ctx context.Context, src ResourceSource) []api.Message {
	var msgs []api.Message

	for _, server := range src.ServerNames() {
		resources, err := src.Resources(ctx, server)
		if err != nil {
			slog.Warn("resource discovery failed", "server", server, "error", err)
			msgs = append(msgs, api.SystemMessage(
				fmt.Sprintf("[%s] Resource discovery failed: %v", server, err)))
			continue
		}

		for _, res := range resources {
			payload, err := src.ReadResource(ctx, server, res.URI)
			if err != nil {
				slog.Warn("resource read failed", "server", server, "uri", res.URI, "error", err)
				msgs = append(msgs, api.SystemMessage(
					fmt.Sprintf("[%s] Resource %s unavailable: %v", server, res.URI, err)))
				continue
			}
			msgs = append(msgs, api.SystemMessage(
				fmt.Sprintf("[%s] Resource %s: %s", server, res.URI, renderPayload(payload))))
		}
	}

	for _, failure := range src.Failures() {
		msgs = append(msgs, api.SystemMessage(
			fmt.Sprintf("[%s] Connection failed: %v", failure.ServerID, failure.Err)))
	}

	return msgs
}

// renderPayload compacts JSON payloads; anything that does not parse is
// passed through as plain text.
func renderPayload(payload string) string {
	if !json.Valid([]byte(payload)) {
		return payload
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(payload)); err != nil {
		return payload
	}
	return buf.String()
}
