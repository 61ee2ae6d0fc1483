package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// KeyEntry pairs a raw API key with the subject it authenticates.
type KeyEntry struct {
	Key     string
	Subject string
}

// APIKey validates bearer tokens against a static key store. Keys are
// hashed at construction; plaintext keys are not retained.
type APIKey struct {
	keys []hashedKey
}

type hashedKey struct {
	hash    [32]byte
	subject string
}

// NewAPIKey builds an API key authenticator from raw entries.
func NewAPIKey(entries []KeyEntry) *APIKey {
	a := &APIKey{}
	for _, e := range entries {
		a.keys = append(a.keys, hashedKey{
			hash:    sha256.Sum256([]byte(e.Key)),
			subject: e.Subject,
		})
	}
	return a
}

// Authenticate hashes the bearer token and compares it in constant time
// against every stored hash. Abstains when no bearer credential is
// present.
func (a *APIKey) Authenticate(_ context.Context, r *http.Request) Result {
	token, ok := bearerToken(r)
	if !ok {
		return Result{Decision: Abstain}
	}
	if token == "" {
		return Result{Decision: No, Err: ErrUnauthenticated}
	}

	tokenHash := sha256.Sum256([]byte(token))
	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], entry.hash[:]) == 1 {
			return Result{Decision: Yes, Identity: &Identity{Subject: entry.subject}}
		}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}
