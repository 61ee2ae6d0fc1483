// Package engine runs the agent loop: it carries a thread's history to
// the reasoning backend, dispatches the tool calls the backend requests,
// and persists the turn's outcome.
package engine

import (
	"context"
	"sync"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/provider"
	"github.com/prajeetragavr/mcpagent/pkg/registry"
	"github.com/prajeetragavr/mcpagent/pkg/storage"
)

const (
	defaultMaxCycles     = 10
	defaultParallelTools = 4
)

// Capabilities is the tool surface the loop needs. *registry.Registry
// satisfies it.
type Capabilities interface {
	ListTools() []registry.ToolDescriptor
	Invoke(ctx context.Context, name string, args map[string]any) registry.Result
}

// Config tunes the agent loop.
type Config struct {
	// Model is passed through to the reasoning backend.
	Model string

	// MaxCycles bounds the tool-call rounds within one turn. Zero
	// selects the default of 10. When the budget is exhausted the loop
	// asks the backend for a best-effort answer instead of failing.
	MaxCycles int

	// ParallelTools bounds concurrent tool invocations within one
	// cycle. Zero selects the default of 4.
	ParallelTools int
}

// Engine executes turns against a reasoning backend. Turns on the same
// thread are serialized; turns on different threads run concurrently.
type Engine struct {
	prov   provider.Provider
	store  storage.ConversationStore
	caps   Capabilities
	cfg    Config
	system []api.Message

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// New builds an engine. The system context, if any, is set separately
// with SetSystemContext once the capability servers have been read.
func New(prov provider.Provider, store storage.ConversationStore, caps Capabilities, cfg Config) *Engine {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = defaultMaxCycles
	}
	if cfg.ParallelTools <= 0 {
		cfg.ParallelTools = defaultParallelTools
	}
	return &Engine{
		prov:    prov,
		store:   store,
		caps:    caps,
		cfg:     cfg,
		threads: make(map[string]*sync.Mutex),
	}
}

// SetSystemContext installs the system messages prepended to every
// turn's transcript. Call before serving traffic.
func (e *Engine) SetSystemContext(msgs []api.Message) {
	e.system = msgs
}

// threadLock returns the mutex serializing turns on one thread.
func (e *Engine) threadLock(threadID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		e.threads[threadID] = lock
	}
	return lock
}
