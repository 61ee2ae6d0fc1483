package registry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

// serverClient wraps an MCP SDK Client and ClientSession for a single
// capability server connection. It handles connection lifecycle, catalog
// discovery, and invocation.
type serverClient struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession
}

func newServerClient(cfg ServerConfig) *serverClient {
	return &serverClient{cfg: cfg}
}

// connect establishes the MCP connection, performing the protocol
// handshake. For testing, an optional transport can be provided to bypass
// config-based transport creation.
func (c *serverClient) connect(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "mcpagent",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

// createTransport creates an MCP transport based on the server configuration.
func (c *serverClient) createTransport() (mcp.Transport, error) {
	switch c.cfg.Transport {
	case "stdio":
		cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
		cmd.Env = append(os.Environ(), c.cfg.Env...)
		cmd.Stderr = os.Stderr
		return &mcp.CommandTransport{Command: cmd}, nil

	case "sse":
		transport := &mcp.SSEClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient := c.buildHTTPClient(); httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient := c.buildHTTPClient(); httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client that injects the configured static
// headers, or nil when none are configured.
func (c *serverClient) buildHTTPClient() *http.Client {
	if len(c.cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
		},
	}
}

// headerTransport is an http.RoundTripper that adds custom headers to
// every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// listTools queries the server for its tool catalog.
func (c *serverClient) listTools(ctx context.Context) ([]ToolDescriptor, error) {
	if c.session == nil {
		return nil, fmt.Errorf("server %q not connected", c.cfg.Name)
	}

	var descs []ToolDescriptor
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		desc, convErr := convertTool(c.cfg.Name, tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// callTool executes a tool call on the server. Transport-level failures
// are folded into an error-flagged Result, never returned as a Go error.
func (c *serverClient) callTool(ctx context.Context, name string, args map[string]any) Result {
	if c.session == nil {
		return errorResult(fmt.Sprintf("server %q not connected", c.cfg.Name))
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("tool call failed on %q: %v", c.cfg.Name, err))
	}
	return convertResult(result)
}

// listResources queries the server for its resource listing.
func (c *serverClient) listResources(ctx context.Context) ([]*mcp.Resource, error) {
	if c.session == nil {
		return nil, fmt.Errorf("server %q not connected", c.cfg.Name)
	}

	var resources []*mcp.Resource
	for res, err := range c.session.Resources(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing resources from %q: %w", c.cfg.Name, err)
		}
		resources = append(resources, res)
	}
	return resources, nil
}

// readResource reads one resource and concatenates its text contents.
func (c *serverClient) readResource(ctx context.Context, uri string) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("server %q not connected", c.cfg.Name)
	}

	result, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("reading resource %q from %q: %w", uri, c.cfg.Name, err)
	}

	var text string
	for _, contents := range result.Contents {
		if contents.Text == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += contents.Text
	}
	return text, nil
}

// getPrompt renders a prompt template on the server into messages.
func (c *serverClient) getPrompt(ctx context.Context, name string, args map[string]string) ([]api.Message, error) {
	if c.session == nil {
		return nil, fmt.Errorf("server %q not connected", c.cfg.Name)
	}

	result, err := c.session.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("getting prompt %q from %q: %w", name, c.cfg.Name, err)
	}

	msgs := make([]api.Message, 0, len(result.Messages))
	for _, pm := range result.Messages {
		msg := api.Message{Role: api.Role(pm.Role)}
		if tc, ok := pm.Content.(*mcp.TextContent); ok {
			msg.Content = tc.Text
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *serverClient) close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
