package worker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

// Sandbox resolves caller-supplied relative paths against a fixed root.
// Resolution is purely lexical and happens before any I/O, so a
// traversal attempt is rejected without touching the filesystem.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at root. The root is made absolute
// once at construction.
func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving sandbox root: %w", err)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve joins rel to the root and verifies the result stays inside it.
// Any path escaping the root, whether by .. segments or by being
// absolute, returns *api.PathEscapeError.
func (s *Sandbox) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", &api.PathEscapeError{Path: rel}
	}

	resolved := filepath.Clean(filepath.Join(s.root, rel))
	if resolved != s.root && !strings.HasPrefix(resolved, s.root+string(filepath.Separator)) {
		return "", &api.PathEscapeError{Path: rel}
	}
	return resolved, nil
}
