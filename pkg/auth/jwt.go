package auth

import (
	"context"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the HMAC JWT authenticator.
type JWTConfig struct {
	// Secret is the shared HMAC signing secret.
	Secret string

	// Issuer, when set, is matched against the token's iss claim.
	Issuer string
}

// JWT validates HS256 bearer tokens signed with a shared secret.
type JWT struct {
	cfg JWTConfig
}

// NewJWT builds a JWT authenticator.
func NewJWT(cfg JWTConfig) *JWT {
	return &JWT{cfg: cfg}
}

// Authenticate parses and verifies the bearer token. Abstains when no
// bearer credential is present; a present but unverifiable token is a
// rejection, not an abstention.
func (j *JWT) Authenticate(_ context.Context, r *http.Request) Result {
	raw, ok := bearerToken(r)
	if !ok {
		return Result{Decision: Abstain}
	}
	if raw == "" {
		return Result{Decision: No, Err: ErrUnauthenticated}
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithExpirationRequired(),
	}
	if j.cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(j.cfg.Issuer))
	}

	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return []byte(j.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return Result{Decision: No, Err: err}
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return Result{Decision: No, Err: ErrUnauthenticated}
	}
	return Result{Decision: Yes, Identity: &Identity{Subject: subject}}
}
