// Package auth guards the gateway's HTTP surface. Authenticators vote
// with three outcomes so schemes can be chained: an API key checker and
// an HMAC JWT checker each claim only the credentials they understand.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prajeetragavr/mcpagent/pkg/config"
)

// Decision is an authenticator's vote on a request.
type Decision int

const (
	// Yes means credentials are valid. The chain stops and the
	// identity is used.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops
	// and the request is rejected.
	No

	// Abstain means this authenticator cannot handle the credential
	// type. The chain continues.
	Abstain
)

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated only when Decision == No
}

// Identity is an authenticated caller.
type Identity struct {
	Subject string
}

// ErrUnauthenticated rejects requests without valid credentials.
var ErrUnauthenticated = errors.New("authentication required")

// Authenticator examines request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Chain evaluates authenticators left to right, stopping on the first
// Yes or No. When every authenticator abstains the default decision
// applies; Yes admits the request as "anonymous".
type Chain struct {
	Authenticators  []Authenticator
	DefaultDecision Decision
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		result := a.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return Result{Decision: Yes, Identity: &Identity{Subject: "anonymous"}}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// FromConfig builds the chain the configuration asks for. Type "none"
// admits everything as anonymous.
func FromConfig(cfg config.AuthConfig) (*Chain, error) {
	switch cfg.Type {
	case "", "none":
		return &Chain{DefaultDecision: Yes}, nil

	case "apikey":
		entries := make([]KeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, KeyEntry{Key: k.Key, Subject: k.Subject})
		}
		return &Chain{Authenticators: []Authenticator{NewAPIKey(entries)}}, nil

	case "jwt":
		return &Chain{Authenticators: []Authenticator{
			NewJWT(JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		}}, nil

	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

// identityKey is a private type for the identity context key.
type identityKey struct{}

// SetIdentity stores the authenticated identity in the context.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}
