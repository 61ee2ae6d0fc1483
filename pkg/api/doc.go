// Package api defines the core message model shared by the agent
// orchestrator, the capability registry, and the conversation stores,
// along with the error taxonomy used across layer boundaries.
package api
