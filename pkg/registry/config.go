package registry

// ServerConfig describes one capability server connection.
type ServerConfig struct {
	// Name identifies the server in the catalog and in system context.
	// Names must be unique across the configured set.
	Name string

	// Transport selects how the server is reached: "stdio" spawns a
	// subprocess, "streamable-http" and "sse" dial URL.
	Transport string

	// Command and Args describe the subprocess for stdio transport.
	Command string
	Args    []string

	// Env holds extra KEY=VALUE pairs appended to the subprocess
	// environment.
	Env []string

	// URL is the endpoint for the HTTP transports.
	URL string

	// Headers are static HTTP headers added to every request.
	Headers map[string]string
}
