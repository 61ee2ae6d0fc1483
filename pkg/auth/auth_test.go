package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/prajeetragavr/mcpagent/pkg/config"
)

func request(authorization string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/threads/thread_x/messages", nil)
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	return r
}

func signToken(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestAPIKeyAuthenticator(t *testing.T) {
	a := NewAPIKey([]KeyEntry{
		{Key: "sk-alpha", Subject: "svc-alpha"},
		{Key: "sk-beta", Subject: "svc-beta"},
	})

	tests := []struct {
		name     string
		header   string
		decision Decision
		subject  string
	}{
		{"valid first key", "Bearer sk-alpha", Yes, "svc-alpha"},
		{"valid second key", "Bearer sk-beta", Yes, "svc-beta"},
		{"wrong key", "Bearer sk-gamma", No, ""},
		{"empty bearer", "Bearer ", No, ""},
		{"no header abstains", "", Abstain, ""},
		{"basic scheme abstains", "Basic Zm9vOmJhcg==", Abstain, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), request(tc.header))
			if result.Decision != tc.decision {
				t.Fatalf("decision = %v, want %v", result.Decision, tc.decision)
			}
			if tc.subject != "" && result.Identity.Subject != tc.subject {
				t.Fatalf("subject = %q, want %q", result.Identity.Subject, tc.subject)
			}
		})
	}
}

func TestJWTAuthenticator(t *testing.T) {
	const secret = "test-secret"
	a := NewJWT(JWTConfig{Secret: secret, Issuer: "mcpagent"})

	valid := signToken(t, secret, jwtlib.MapClaims{
		"sub": "user-1",
		"iss": "mcpagent",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, secret, jwtlib.MapClaims{
		"sub": "user-1",
		"iss": "mcpagent",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongIssuer := signToken(t, secret, jwtlib.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other-secret", jwtlib.MapClaims{
		"sub": "user-1",
		"iss": "mcpagent",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, secret, jwtlib.MapClaims{
		"iss": "mcpagent",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name     string
		header   string
		decision Decision
	}{
		{"valid token", "Bearer " + valid, Yes},
		{"expired token", "Bearer " + expired, No},
		{"wrong issuer", "Bearer " + wrongIssuer, No},
		{"wrong signing key", "Bearer " + wrongKey, No},
		{"missing subject", "Bearer " + noSubject, No},
		{"garbage token", "Bearer not.a.jwt", No},
		{"no header abstains", "", Abstain},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), request(tc.header))
			if result.Decision != tc.decision {
				t.Fatalf("decision = %v, want %v (err=%v)", result.Decision, tc.decision, result.Err)
			}
		})
	}

	result := a.Authenticate(context.Background(), request("Bearer "+valid))
	if result.Identity.Subject != "user-1" {
		t.Fatalf("subject = %q", result.Identity.Subject)
	}
}

func TestChainDefaultDecision(t *testing.T) {
	open := &Chain{DefaultDecision: Yes}
	result := open.Authenticate(context.Background(), request(""))
	if result.Decision != Yes || result.Identity.Subject != "anonymous" {
		t.Fatalf("open chain = %+v", result)
	}

	closed := &Chain{Authenticators: []Authenticator{NewAPIKey(nil)}}
	result = closed.Authenticate(context.Background(), request(""))
	if result.Decision != No {
		t.Fatalf("closed chain admitted an unauthenticated request: %+v", result)
	}
}

func TestFromConfig(t *testing.T) {
	if _, err := FromConfig(config.AuthConfig{Type: "bogus"}); err == nil {
		t.Fatal("unknown auth type accepted")
	}

	chain, err := FromConfig(config.AuthConfig{
		Type:    "apikey",
		APIKeys: []config.APIKeyConfig{{Key: "sk-test", Subject: "svc"}},
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	result := chain.Authenticate(context.Background(), request("Bearer sk-test"))
	if result.Decision != Yes || result.Identity.Subject != "svc" {
		t.Fatalf("apikey chain = %+v", result)
	}
}

func TestMiddleware(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		NewAPIKey([]KeyEntry{{Key: "sk-test", Subject: "svc"}}),
	}}

	var gotSubject string
	handler := Middleware(chain, DefaultBypassEndpoints)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := IdentityFromContext(r.Context()); id != nil {
				gotSubject = id.Subject
			}
			w.WriteHeader(http.StatusOK)
		}))

	// Authenticated request reaches the handler with its identity.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request("Bearer sk-test"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotSubject != "svc" {
		t.Fatalf("subject in context = %q", gotSubject)
	}

	// Unauthenticated request is rejected with a JSON body.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request(""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	// Bypass endpoints skip the chain entirely.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("bypass status = %d", rec.Code)
	}
}
