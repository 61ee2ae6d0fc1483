// Package files implements the sandboxed file capability server. Every
// tool takes paths relative to the sandbox root; traversal outside the
// root is rejected before any I/O.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
)

// RootListingURI is the resource listing the sandbox root's entries.
const RootListingURI = "file://tmp"

// summaryHeadLen bounds how much raw text a document summary quotes.
const summaryHeadLen = 200

var pathSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"path": map[string]any{"type": "string", "description": "Path relative to the server root"},
	},
	"required": []string{"path"},
}

// Register installs the file tools, the root listing resource, and the
// summarize_file prompt on the runtime.
func Register(rt *worker.Runtime, sb *worker.Sandbox) {
	rt.RegisterTool(
		&mcp.Tool{Name: "list_dir", Description: "List the entries of a directory", InputSchema: pathSchema},
		pathTool(sb, listDir),
	)
	rt.RegisterTool(
		&mcp.Tool{Name: "read_file", Description: "Read a file's contents", InputSchema: pathSchema},
		pathTool(sb, readFile),
	)
	rt.RegisterTool(
		&mcp.Tool{
			Name:        "write_file",
			Description: "Write content to a file, creating parent directories as needed",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string", "description": "Path relative to the server root"},
					"content": map[string]any{"type": "string", "description": "Content to write"},
				},
				"required": []string{"path", "content"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Path    string `json:"path"`
				Content string `json:"content"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			resolved, err := sb.Resolve(in.Path)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return nil, fmt.Errorf("creating parent directories: %w", err)
			}
			if err := os.WriteFile(resolved, []byte(in.Content), 0o644); err != nil {
				return nil, fmt.Errorf("writing file: %w", err)
			}
			return textResult(fmt.Sprintf("Wrote %d bytes to %s", len(in.Content), in.Path)), nil
		},
	)
	rt.RegisterTool(
		&mcp.Tool{Name: "summarize_document", Description: "Produce a short summary of a text document", InputSchema: pathSchema},
		pathTool(sb, summarizeDocument),
	)

	rt.RegisterResource(
		&mcp.Resource{
			URI:         RootListingURI,
			Name:        "root-listing",
			Description: "Entries of the server root as a JSON array",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			names, err := dirNames(sb.Root())
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(names)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{
					URI:      RootListingURI,
					MIMEType: "application/json",
					Text:     string(payload),
				}},
			}, nil
		},
	)

	rt.RegisterPrompt(
		&mcp.Prompt{
			Name:        "summarize_file",
			Description: "Ask for a summary of a file in the server root",
			Arguments: []*mcp.PromptArgument{
				{Name: "path", Description: "Path relative to the server root", Required: true},
			},
		},
		func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			path := req.Params.Arguments["path"]
			return &mcp.GetPromptResult{
				Messages: []*mcp.PromptMessage{{
					Role: "user",
					Content: &mcp.TextContent{
						Text: fmt.Sprintf("Summarize the document at %q in a few sentences, noting its main topics.", path),
					},
				}},
			}, nil
		},
	)
}

// pathTool adapts a resolved-path function into a tool handler.
func pathTool(sb *worker.Sandbox, fn func(resolved string) (string, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		resolved, err := sb.Resolve(in.Path)
		if err != nil {
			return nil, err
		}
		out, err := fn(resolved)
		if err != nil {
			return nil, err
		}
		return textResult(out), nil
	}
}

func listDir(resolved string) (string, error) {
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("Not a directory")
	}
	names, err := dirNames(resolved)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func readFile(resolved string) (string, error) {
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("Not a file")
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

func summarizeDocument(resolved string) (string, error) {
	text, err := readFile(resolved)
	if err != nil {
		return "", err
	}

	lines := strings.Count(text, "\n")
	words := len(strings.Fields(text))

	head := text
	if len(head) > summaryHeadLen {
		head = head[:summaryHeadLen] + "..."
	}

	return fmt.Sprintf("Document summary: %d lines, %d words. Opening: %s", lines, words, strings.TrimSpace(head)), nil
}

// dirNames lists a directory's entries, directories marked with a
// trailing slash, sorted by name.
func dirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
