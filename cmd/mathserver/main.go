// Command mathserver runs the arithmetic capability server over stdio.
// The orchestrator spawns it as a subprocess.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
	"github.com/prajeetragavr/mcpagent/pkg/worker/maths"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := worker.New("maths", "1.0.0", worker.Options{})
	maths.Register(rt)

	if err := rt.ServeStdio(ctx); err != nil {
		slog.Error("math server failed", "error", err)
		os.Exit(1)
	}
}
