// Package postgres provides a PostgreSQL implementation of
// storage.ConversationStore. It uses pgx/v5 for connection pooling and
// JSONB for message storage.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/storage"
)

// Store is a PostgreSQL-backed ConversationStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.ConversationStore at compile time.
var _ storage.ConversationStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Load returns the thread's messages ordered by sequence number. An
// unknown thread is an empty log.
func (s *Store) Load(ctx context.Context, threadID string) ([]api.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM conversations
		WHERE thread_id = $1
		ORDER BY seq
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying thread %q: %w", threadID, err)
	}
	defer rows.Close()

	var msgs []api.Message
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		var msg api.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("decoding message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thread %q: %w", threadID, err)
	}
	return msgs, nil
}

// Append adds messages to the thread's log inside a single transaction.
// An advisory lock on the thread id serializes concurrent appenders so
// sequence numbers never collide, and the batch commits atomically.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...api.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, threadID); err != nil {
		return fmt.Errorf("locking thread %q: %w", threadID, err)
	}

	var next int64
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM conversations WHERE thread_id = $1
	`, threadID).Scan(&next); err != nil {
		return fmt.Errorf("reading sequence for thread %q: %w", threadID, err)
	}

	for i, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encoding message: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversations (thread_id, seq, role, payload)
			VALUES ($1, $2, $3, $4)
		`, threadID, next+int64(i), string(msg.Role), payload); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append to thread %q: %w", threadID, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
