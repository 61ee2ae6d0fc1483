// Package bolt provides a bbolt-backed ConversationStore for durable
// single-node deployments. Each thread is one key in a shared bucket,
// holding the JSON-encoded message log.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/storage"
)

var bucketName = []byte("conversations")

// Store persists conversation logs to a bbolt file on disk.
type Store struct {
	db *bolt.DB
}

// Ensure Store implements storage.ConversationStore at compile time.
var _ storage.ConversationStore = (*Store)(nil)

// New opens (or creates) a bbolt database at path.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Load returns the thread's messages. An unknown thread is an empty log.
func (s *Store) Load(ctx context.Context, threadID string) ([]api.Message, error) {
	var msgs []api.Message
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(threadID))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("loading thread %q: %w", threadID, err)
	}
	return msgs, nil
}

// Append adds messages to the thread's log. The read-modify-write runs in
// a single update transaction, so the batch is all-or-nothing.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...api.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)

		var log []api.Message
		if raw := bkt.Get([]byte(threadID)); raw != nil {
			if err := json.Unmarshal(raw, &log); err != nil {
				return fmt.Errorf("decoding existing log: %w", err)
			}
		}

		log = append(log, msgs...)

		raw, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("encoding log: %w", err)
		}
		return bkt.Put([]byte(threadID), raw)
	})
	if err != nil {
		return fmt.Errorf("appending to thread %q: %w", threadID, err)
	}
	return nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}
