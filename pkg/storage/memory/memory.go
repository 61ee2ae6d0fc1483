// Package memory provides an in-memory ConversationStore for testing and
// lightweight deployments. Threads are stored in memory and lost when the
// process restarts. Optional LRU eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/storage"
)

// entry holds one thread's log and its LRU position.
type entry struct {
	msgs    []api.Message
	lruElem *list.Element
}

// Store is an in-memory ConversationStore with optional LRU eviction of
// whole threads.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*entry
	lruList *list.List // front = most recently used
	maxSize int        // 0 = unlimited thread count
	closed  bool
}

// Ensure Store implements storage.ConversationStore at compile time.
var _ storage.ConversationStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently used thread is
// evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		threads: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Load returns a copy of the thread's log. An unknown thread is an empty
// log.
func (s *Store) Load(ctx context.Context, threadID string) ([]api.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	e, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}

	out := make([]api.Message, len(e.msgs))
	copy(out, e.msgs)
	return out, nil
}

// Append adds messages to the thread's log. The whole batch lands under
// one lock acquisition, so readers never see a partial batch.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...api.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	e, ok := s.threads[threadID]
	if !ok {
		if s.maxSize > 0 && len(s.threads) >= s.maxSize {
			s.evictOldest()
		}
		e = &entry{lruElem: s.lruList.PushFront(threadID)}
		s.threads[threadID] = e
	} else {
		s.lruList.MoveToFront(e.lruElem)
	}

	e.msgs = append(e.msgs, msgs...)
	return nil
}

// Close marks the store closed and drops all threads.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.threads = nil
	s.lruList = list.New()
	return nil
}

// evictOldest removes the least recently used thread. Caller must hold
// the write lock.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	threadID := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.threads, threadID)
}
