// Command personaserver runs the persona capability server over stdio.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
	"github.com/prajeetragavr/mcpagent/pkg/worker/persona"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := worker.New("persona", "1.0.0", worker.Options{})
	persona.Register(rt)

	if err := rt.ServeStdio(ctx); err != nil {
		slog.Error("persona server failed", "error", err)
		os.Exit(1)
	}
}
