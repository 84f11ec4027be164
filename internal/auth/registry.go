package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/aegisrun/internal/auth/firebase"
	"github.com/loykin/aegisrun/internal/auth/oauth2"
)

// Method is the plugin interface for an identity provider.
// Implementations wrap decoded configuration and exchange it for a Credential.
type Method interface {
	Acquire(ctx context.Context) (*Credential, error)
}

// Factory builds a Method instance from a loosely-typed spec map.
// Decoding into a concrete config struct is the typical responsibility of a Factory.
type Factory func(spec map[string]interface{}) (Method, error)

// MethodFunc adapts a plain function to Method.
type MethodFunc func(ctx context.Context) (*Credential, error)

func (f MethodFunc) Acquire(ctx context.Context) (*Credential, error) { return f(ctx) }

var (
	providersMu sync.RWMutex
	providers   = map[string]Factory{}
)

// normalizeKey lower-cases and trims provider type keys.
func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register registers a provider factory under a type key (e.g., "firebase", "oauth2").
func Register(typ string, f Factory) {
	key := normalizeKey(typ)
	if key == "" || f == nil {
		return
	}
	providersMu.Lock()
	providers[key] = f
	providersMu.Unlock()
}

func lookup(key string) (Factory, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	f, ok := providers[key]
	return f, ok
}

// Built-in provider registrations
func init() {
	Register("firebase", func(spec map[string]interface{}) (Method, error) {
		var c firebase.Config
		if err := mapstructure.Decode(spec, &c); err != nil {
			return nil, err
		}
		return MethodFunc(func(ctx context.Context) (*Credential, error) {
			s, err := firebase.SignInWithPassword(ctx, c)
			if err != nil {
				return nil, err
			}
			cred := &Credential{Token: s.IDToken, Subject: s.LocalID}
			if s.ExpiresIn > 0 {
				cred.ExpiresAt = time.Now().Add(s.ExpiresIn)
			}
			return cred, nil
		}), nil
	})

	Register("oauth2", func(spec map[string]interface{}) (Method, error) {
		var c oauth2.PasswordConfig
		if err := mapstructure.Decode(spec, &c); err != nil {
			return nil, err
		}
		return MethodFunc(func(ctx context.Context) (*Credential, error) {
			tok, err := oauth2.AcquirePassword(ctx, c)
			if err != nil {
				return nil, err
			}
			return &Credential{Token: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
		}), nil
	})
}
