// Command tableserver runs the PostgreSQL table capability server over
// streamable HTTP, so it can live next to the database rather than on
// the orchestrator host.
//
//	MCPAGENT_TABLES_DSN  - PostgreSQL connection string (required)
//	MCPAGENT_TABLES_ADDR - listen address (default: :8081)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
	"github.com/prajeetragavr/mcpagent/pkg/worker/tables"
)

func main() {
	if err := run(); err != nil {
		slog.Error("table server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dsn := os.Getenv("MCPAGENT_TABLES_DSN")
	if dsn == "" {
		return fmt.Errorf("MCPAGENT_TABLES_DSN is required")
	}
	addr := os.Getenv("MCPAGENT_TABLES_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	rt := worker.New("tables", "1.0.0", worker.Options{})
	tables.Register(rt, pool, worker.NewSchemaCache())

	return rt.ServeHTTP(ctx, addr)
}
