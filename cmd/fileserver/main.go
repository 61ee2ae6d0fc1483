// Command fileserver runs the sandboxed file capability server over
// stdio. Every path a tool receives is resolved inside --root; paths
// that escape it are rejected before any I/O.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
	"github.com/prajeetragavr/mcpagent/pkg/worker/files"
)

func main() {
	root := flag.String("root", os.TempDir(), "directory the file tools are confined to")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sb, err := worker.NewSandbox(*root)
	if err != nil {
		slog.Error("invalid sandbox root", "root", *root, "error", err)
		os.Exit(1)
	}

	rt := worker.New("files", "1.0.0", worker.Options{})
	files.Register(rt, sb)

	if err := rt.ServeStdio(ctx); err != nil {
		slog.Error("file server failed", "error", err)
		os.Exit(1)
	}
}
