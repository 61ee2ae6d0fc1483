// Package storage defines the conversation store contract shared by the
// memory, bolt, and postgres backends.
package storage

import (
	"context"
	"errors"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

// Sentinel errors for store operations.
var (
	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store is closed")
)

// ConversationStore persists per-thread message logs. Each thread is an
// ordered, append-only sequence; threads are isolated from each other.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type ConversationStore interface {
	// Load returns the thread's messages in append order. A thread that
	// has never been written is an empty log, not an error.
	Load(ctx context.Context, threadID string) ([]api.Message, error)

	// Append adds messages to the end of the thread's log. Appending
	// multiple messages is all-or-nothing: concurrent readers never
	// observe a prefix of the batch.
	Append(ctx context.Context, threadID string, msgs ...api.Message) error

	// Close releases store resources.
	Close() error
}
