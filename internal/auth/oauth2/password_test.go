package oauth2

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

func TestAcquirePassword_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "password" || r.Form.Get("username") != "user" || r.Form.Get("password") != "pass" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenResp{AccessToken: "t-pass", TokenType: "Bearer", ExpiresIn: 600})
	}))
	defer srv.Close()

	cfg := PasswordConfig{
		ClientID: "client",
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
		Username: "user",
		Password: "pass",
	}
	tok, err := AcquirePassword(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "t-pass" {
		t.Fatalf("unexpected token: %q", tok.AccessToken)
	}
	if tok.Expiry.IsZero() {
		t.Fatal("expected expiry from expires_in")
	}
}

func TestAcquirePassword_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	cfg := PasswordConfig{ClientID: "c", TokenURL: srv.URL + "/token", Username: "u", Password: "p"}
	if _, err := AcquirePassword(context.Background(), cfg); err == nil {
		t.Fatal("expected error for rejected grant")
	}
}

func TestAcquirePassword_ValidationErrors(t *testing.T) {
	if _, err := AcquirePassword(context.Background(), PasswordConfig{}); err == nil {
		t.Fatal("expected error for missing token_url")
	}
	if _, err := AcquirePassword(context.Background(), PasswordConfig{TokenURL: "http://x"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestPasswordConfig_ToMap(t *testing.T) {
	c := PasswordConfig{ClientID: "cid", ClientSec: "sec", AuthURL: "a", TokenURL: "t", Username: "u", Password: "p"}
	m := c.ToMap()
	if m["client_id"] != "cid" || m["client_secret"] != "sec" || m["auth_url"] != "a" || m["token_url"] != "t" || m["username"] != "u" || m["password"] != "p" {
		t.Fatalf("password config mismatch: %+v", m)
	}
	if _, ok := m["scopes"]; ok {
		t.Fatalf("scopes should be absent when empty: %+v", m)
	}
	c.Scopes = []string{"x"}
	if got, ok := c.ToMap()["scopes"].([]string); !ok || len(got) != 1 || got[0] != "x" {
		t.Fatalf("scopes not preserved: %+v", c.ToMap()["scopes"])
	}
}
