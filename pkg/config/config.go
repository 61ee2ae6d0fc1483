// Package config provides unified configuration for the mcpagent
// orchestrator and its capability servers.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MCPAGENT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the mcpagent orchestrator.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Servers       []MCPServerConfig   `yaml:"servers"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings for the orchestrator gateway.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// EngineConfig holds reasoning backend and agent loop settings.
type EngineConfig struct {
	BackendURL string `yaml:"backend_url"`  // required
	APIKey     string `yaml:"api_key"`      // optional
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	Model      string `yaml:"model"`        // optional
	MaxCycles  int    `yaml:"max_cycles"`   // default: 10
}

// StorageConfig holds conversation store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "bolt" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Bolt     BoltConfig     `yaml:"bolt"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// BoltConfig holds bbolt-specific settings.
type BoltConfig struct {
	Path string `yaml:"path"` // default: "mcpagent.db"
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// JWTConfig holds HMAC bearer token settings.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`      // optional expected issuer
}

// MCPServerConfig describes a single capability server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio", "streamable-http" or "sse"
	Command   string            `yaml:"command"`   // stdio: executable to spawn
	Args      []string          `yaml:"args"`      // stdio: arguments
	Env       []string          `yaml:"env"`       // stdio: extra KEY=VALUE pairs
	URL       string            `yaml:"url"`       // http transports: endpoint
	Headers   map[string]string `yaml:"headers"`   // http transports: static headers
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Engine: EngineConfig{
			MaxCycles: 10,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Bolt: BoltConfig{
				Path: "mcpagent.db",
			},
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
