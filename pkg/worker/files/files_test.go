package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
)

func connect(t *testing.T) (*mcp.ClientSession, string) {
	t.Helper()

	root := t.TempDir()
	sb, err := worker.NewSandbox(root)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}

	rt := worker.New("files", "1.0.0", worker.Options{})
	Register(rt, sb)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = rt.Serve(context.Background(), serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), clientTransport, nil)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, root
}

func callText(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	var text string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text, res.IsError
}

func TestWriteThenRead(t *testing.T) {
	session, _ := connect(t)

	got, isErr := callText(t, session, "write_file", map[string]any{
		"path": "docs/note.txt", "content": "hello sandbox",
	})
	if isErr {
		t.Fatalf("write_file error: %s", got)
	}

	got, isErr = callText(t, session, "read_file", map[string]any{"path": "docs/note.txt"})
	if isErr {
		t.Fatalf("read_file error: %s", got)
	}
	if got != "hello sandbox" {
		t.Errorf("read_file = %q", got)
	}
}

func TestListDir(t *testing.T) {
	session, root := connect(t)

	os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644)
	os.Mkdir(filepath.Join(root, "sub"), 0o755)

	got, isErr := callText(t, session, "list_dir", map[string]any{"path": "."})
	if isErr {
		t.Fatalf("list_dir error: %s", got)
	}

	var names []string
	if err := json.Unmarshal([]byte(got), &names); err != nil {
		t.Fatalf("list_dir payload is not JSON: %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "sub/" {
		t.Errorf("list_dir = %v", names)
	}
}

func TestListDir_NotADirectory(t *testing.T) {
	session, _ := connect(t)

	got, isErr := callText(t, session, "list_dir", map[string]any{"path": "missing"})
	if !isErr {
		t.Fatalf("list_dir(missing) = %q, want error result", got)
	}
	if !strings.Contains(got, "Not a directory") {
		t.Errorf("error text = %q, want \"Not a directory\"", got)
	}
}

func TestReadFile_NotAFile(t *testing.T) {
	session, _ := connect(t)

	got, isErr := callText(t, session, "read_file", map[string]any{"path": "."})
	if !isErr {
		t.Fatalf("read_file(dir) = %q, want error result", got)
	}
	if !strings.Contains(got, "Not a file") {
		t.Errorf("error text = %q, want \"Not a file\"", got)
	}
}

func TestPathEscapeRejectedWithoutIO(t *testing.T) {
	session, root := connect(t)

	// A file outside the root that a traversal would overwrite.
	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	os.WriteFile(outside, []byte("untouched"), 0o644)

	got, isErr := callText(t, session, "write_file", map[string]any{
		"path": "../outside.txt", "content": "clobbered",
	})
	if !isErr {
		t.Fatalf("write_file(traversal) = %q, want error result", got)
	}
	if !strings.Contains(got, "escapes") {
		t.Errorf("error text = %q, want path escape message", got)
	}

	data, _ := os.ReadFile(outside)
	if string(data) != "untouched" {
		t.Error("traversal write reached the filesystem")
	}

	got, isErr = callText(t, session, "read_file", map[string]any{"path": "../../etc/passwd"})
	if !isErr {
		t.Fatalf("read_file(traversal) = %q, want error result", got)
	}
}

func TestSummarizeDocument(t *testing.T) {
	session, root := connect(t)

	os.WriteFile(filepath.Join(root, "doc.txt"),
		[]byte("First line of the report.\nSecond line with more words.\n"), 0o644)

	got, isErr := callText(t, session, "summarize_document", map[string]any{"path": "doc.txt"})
	if isErr {
		t.Fatalf("summarize_document error: %s", got)
	}
	if !strings.Contains(got, "2 lines") || !strings.Contains(got, "10 words") {
		t.Errorf("summary = %q, want line and word counts", got)
	}
	if !strings.Contains(got, "First line of the report.") {
		t.Errorf("summary = %q, want opening text", got)
	}
}

func TestRootListingResource(t *testing.T) {
	session, root := connect(t)

	os.WriteFile(filepath.Join(root, "data.csv"), []byte("x"), 0o644)

	res, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: RootListingURI})
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &names); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(names) != 1 || names[0] != "data.csv" {
		t.Errorf("root listing = %v", names)
	}
}

func TestSummarizeFilePrompt(t *testing.T) {
	session, _ := connect(t)

	res, err := session.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name:      "summarize_file",
		Arguments: map[string]string{"path": "doc.txt"},
	})
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	tc, ok := res.Messages[0].Content.(*mcp.TextContent)
	if !ok || !strings.Contains(tc.Text, "doc.txt") {
		t.Errorf("prompt message = %+v, want the path embedded", res.Messages[0])
	}
}
