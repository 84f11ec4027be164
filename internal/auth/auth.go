package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuth marks a failed credential exchange: the provider rejected the test identity,
// could not be reached, or returned no usable token. It is always fatal for a run.
var ErrAuth = errors.New("authentication failed")

// Credential is the bearer token acquired for one run. It is never persisted and
// is read-only once returned.
type Credential struct {
	Token     string
	Provider  string
	Subject   string
	ExpiresAt time.Time
}

// Valid reports whether the credential carries a token that has not yet expired.
// A zero ExpiresAt means the provider did not say, and the token is assumed valid.
func (c *Credential) Valid() bool {
	if c == nil || strings.TrimSpace(c.Token) == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || time.Now().Before(c.ExpiresAt)
}

// Bearer returns the Authorization header value for the credential.
func (c *Credential) Bearer() string {
	if c == nil {
		return ""
	}
	return "Bearer " + c.Token
}

// Acquire resolves the provider registered under typ, builds it from spec and
// exchanges the configured identity for a Credential. Every failure wraps ErrAuth.
func Acquire(ctx context.Context, typ string, spec map[string]interface{}) (*Credential, error) {
	key := normalizeKey(typ)
	if key == "" {
		return nil, fmt.Errorf("%w: missing provider type", ErrAuth)
	}
	f, ok := lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported provider type: %s", ErrAuth, typ)
	}
	m, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cred, err := m.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	if cred == nil || strings.TrimSpace(cred.Token) == "" {
		return nil, fmt.Errorf("%w: provider %s returned an empty token", ErrAuth, key)
	}
	cred.Provider = key
	fillFromClaims(cred)
	return cred, nil
}

// fillFromClaims reads subject and expiry from the token when it is a JWT and the
// provider did not report them. The signature is not verified; the target API does that.
func fillFromClaims(c *Credential) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return
	}
	if c.Subject == "" {
		if sub, err := claims.GetSubject(); err == nil {
			c.Subject = sub
		}
	}
	if c.ExpiresAt.IsZero() {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			c.ExpiresAt = exp.Time
		}
	}
}
