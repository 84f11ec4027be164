package oauth2

import (
	"context"
	"errors"
	"strings"
	"time"

	acommon "github.com/loykin/aegisrun/internal/auth/common"
	"golang.org/x/oauth2"
)

// PasswordConfig holds configuration for the Resource Owner Password Credentials grant.
// It is the alternative to firebase for backends fronted by a generic OIDC server.
type PasswordConfig struct {
	ClientID  string   `mapstructure:"client_id"`
	ClientSec string   `mapstructure:"client_secret"`
	AuthURL   string   `mapstructure:"auth_url"`
	TokenURL  string   `mapstructure:"token_url"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Scopes    []string `mapstructure:"scopes"`
}

// ToMap returns a spec compatible with the oauth2 provider factory.
func (c PasswordConfig) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSec,
		"auth_url":      c.AuthURL,
		"token_url":     c.TokenURL,
		"username":      c.Username,
		"password":      c.Password,
	}
	if len(c.Scopes) > 0 {
		m["scopes"] = c.Scopes
	}
	return m
}

// Token is the subset of an oauth2 token the harness keeps.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// AcquirePassword performs the password grant and returns the access token.
func AcquirePassword(ctx context.Context, c PasswordConfig) (*Token, error) {
	clientID := strings.TrimSpace(c.ClientID)
	username := strings.TrimSpace(c.Username)
	tokenURL := strings.TrimSpace(c.TokenURL)
	if tokenURL == "" {
		return nil, errors.New("oauth2: token_url is required for password grant")
	}
	if clientID == "" || username == "" || c.Password == "" {
		return nil, errors.New("oauth2: client_id, username and password are required for password grant")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// Route the grant through the shared identity client so TLS/timeout settings apply.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, acommon.NewClient().GetClient())

	ocfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: strings.TrimSpace(c.ClientSec),
		Endpoint: oauth2.Endpoint{
			AuthURL:   strings.TrimSpace(c.AuthURL),
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: c.Scopes,
	}
	tok, err := ocfg.PasswordCredentialsToken(ctx, username, c.Password)
	if err != nil {
		return nil, err
	}
	if !tok.Valid() || strings.TrimSpace(tok.AccessToken) == "" {
		return nil, errors.New("oauth2: received invalid token")
	}
	return &Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}
