package firebase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	acommon "github.com/loykin/aegisrun/internal/auth/common"
	"github.com/loykin/aegisrun/internal/constants"
	"github.com/loykin/aegisrun/internal/util"
	"github.com/tidwall/gjson"
)

// Config holds the web-app settings of a Firebase project plus the test account.
// Only APIKey, Email and Password are needed on the wire; the rest identify the
// project and are carried so a single config block describes the whole app.
type Config struct {
	APIKey            string `mapstructure:"api_key"`
	AuthDomain        string `mapstructure:"auth_domain"`
	ProjectID         string `mapstructure:"project_id"`
	StorageBucket     string `mapstructure:"storage_bucket"`
	MessagingSenderID string `mapstructure:"messaging_sender_id"`
	AppID             string `mapstructure:"app_id"`
	Email             string `mapstructure:"email"`
	Password          string `mapstructure:"password"`
	// IdentityURL overrides the Identity Toolkit origin (emulators, tests).
	IdentityURL string `mapstructure:"identity_url"`
}

// ToMap returns a spec map for the firebase provider.
func (c Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"api_key":             c.APIKey,
		"auth_domain":         c.AuthDomain,
		"project_id":          c.ProjectID,
		"storage_bucket":      c.StorageBucket,
		"messaging_sender_id": c.MessagingSenderID,
		"app_id":              c.AppID,
		"email":               c.Email,
		"password":            c.Password,
		"identity_url":        c.IdentityURL,
	}
}

// Session is the result of a successful password sign-in.
type Session struct {
	IDToken      string
	RefreshToken string
	LocalID      string
	Email        string
	ExpiresIn    time.Duration
}

// SignInError is returned when the identity provider answers with a non-2xx status.
type SignInError struct {
	Status  int
	Message string
}

func (e *SignInError) Error() string {
	return fmt.Sprintf("firebase: sign-in rejected (status %d): %s", e.Status, e.Message)
}

// SignInWithPassword exchanges email and password for an ID token via the
// Identity Toolkit accounts:signInWithPassword endpoint.
func SignInWithPassword(ctx context.Context, c Config) (*Session, error) {
	apiKey, _ := util.TrimEmptyCheck(c.APIKey)
	email, _ := util.TrimEmptyCheck(c.Email)
	if apiKey == "" || email == "" || c.Password == "" {
		return nil, errors.New("firebase: api_key, email and password are required")
	}
	base := util.TrimWithDefault(c.IdentityURL, constants.DefaultIdentityURL)
	endpoint := util.JoinURL(base, constants.SignInWithPasswordPath)

	req := acommon.NewClient().R().
		SetContext(ctx).
		SetQueryParam("key", apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"email":             email,
			"password":          c.Password,
			"returnSecureToken": true,
		})
	if appID, ok := util.TrimEmptyCheck(c.AppID); ok {
		req.SetHeader("X-Firebase-GMPID", appID)
	}
	resp, err := req.Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("firebase: identity provider unreachable: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &SignInError{Status: resp.StatusCode(), Message: msg}
	}

	parsed := gjson.ParseBytes(body)
	s := &Session{
		IDToken:      parsed.Get("idToken").String(),
		RefreshToken: parsed.Get("refreshToken").String(),
		LocalID:      parsed.Get("localId").String(),
		Email:        parsed.Get("email").String(),
	}
	if secs, err := strconv.Atoi(parsed.Get("expiresIn").String()); err == nil && secs > 0 {
		s.ExpiresIn = time.Duration(secs) * time.Second
	}
	if strings.TrimSpace(s.IDToken) == "" {
		return nil, errors.New("firebase: idToken not found in response")
	}
	return s, nil
}
