package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine.BackendURL == "" {
		errs = append(errs, fmt.Errorf("engine.backend_url is required"))
	}
	if c.Engine.MaxCycles <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_cycles must be > 0, got %d", c.Engine.MaxCycles))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Storage.Type {
	case "memory", "bolt", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"bolt\" or \"postgres\", got %q", c.Storage.Type))
	}

	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}
	if c.Storage.Type == "bolt" && c.Storage.Bolt.Path == "" {
		errs = append(errs, fmt.Errorf("storage.bolt.path is required when storage.type is \"bolt\""))
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\" or \"jwt\", got %q", c.Auth.Type))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
	}

	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("servers[%d].name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("servers[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true

		switch s.Transport {
		case "stdio":
			if s.Command == "" {
				errs = append(errs, fmt.Errorf("servers[%d].command is required for stdio transport", i))
			}
		case "streamable-http", "sse":
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("servers[%d].url is required for %s transport", i, s.Transport))
			}
		default:
			errs = append(errs, fmt.Errorf("servers[%d].transport must be \"stdio\", \"streamable-http\" or \"sse\", got %q", i, s.Transport))
		}
	}

	return errors.Join(errs...)
}
