// Command agent runs the MCP agent orchestrator: it connects the
// configured capability servers, loads their resources into the system
// context, and serves the gateway HTTP API.
//
// Configuration is layered: defaults, then an optional YAML file
// (--config, MCPAGENT_CONFIG, ./config.yaml, /etc/mcpagent/config.yaml),
// then MCPAGENT_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prajeetragavr/mcpagent/pkg/auth"
	"github.com/prajeetragavr/mcpagent/pkg/config"
	"github.com/prajeetragavr/mcpagent/pkg/engine"
	"github.com/prajeetragavr/mcpagent/pkg/gateway"
	"github.com/prajeetragavr/mcpagent/pkg/provider"
	"github.com/prajeetragavr/mcpagent/pkg/registry"
	"github.com/prajeetragavr/mcpagent/pkg/storage"
	"github.com/prajeetragavr/mcpagent/pkg/storage/bolt"
	"github.com/prajeetragavr/mcpagent/pkg/storage/memory"
	"github.com/prajeetragavr/mcpagent/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("agent failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	prov, err := provider.NewChat(provider.ChatConfig{
		BaseURL: cfg.Engine.BackendURL,
		APIKey:  cfg.Engine.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	reg, err := registry.Connect(ctx, serverConfigs(cfg))
	if err != nil {
		return fmt.Errorf("connecting capability servers: %w", err)
	}
	defer reg.Close()
	slog.Info("capability catalog ready",
		"servers", len(reg.ServerNames()),
		"tools", len(reg.ListTools()),
		"failures", len(reg.Failures()))

	eng := engine.New(prov, store, reg, engine.Config{
		Model:     cfg.Engine.Model,
		MaxCycles: cfg.Engine.MaxCycles,
	})
	eng.SetSystemContext(engine.LoadSystemContext(ctx, reg))

	chain, err := auth.FromConfig(cfg.Auth)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}

	gw := gateway.New(eng, reg, chain)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      gw.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway starting",
			"port", cfg.Server.Port,
			"backend", cfg.Engine.BackendURL,
			"model", cfg.Engine.Model,
			"storage", cfg.Storage.Type)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// openStore builds the conversation store the configuration selects.
func openStore(ctx context.Context, cfg *config.Config) (storage.ConversationStore, error) {
	switch cfg.Storage.Type {
	case "", "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil

	case "bolt":
		slog.Info("storage enabled", "type", "bolt", "path", cfg.Storage.Bolt.Path)
		return bolt.New(cfg.Storage.Bolt.Path)

	case "postgres":
		slog.Info("storage enabled", "type", "postgres", "max_conns", cfg.Storage.Postgres.MaxConns)
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// serverConfigs maps the configuration's server entries into the
// registry's connection format.
func serverConfigs(cfg *config.Config) []registry.ServerConfig {
	out := make([]registry.ServerConfig, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		out = append(out, registry.ServerConfig{
			Name:      s.Name,
			Transport: s.Transport,
			Command:   s.Command,
			Args:      s.Args,
			Env:       s.Env,
			URL:       s.URL,
			Headers:   s.Headers,
		})
	}
	return out
}
