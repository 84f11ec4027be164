package common

import (
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/aegisrun/internal/httpc"
)

// Package-level HTTP settings used by identity provider clients (firebase, oauth2).
// This mirrors the target API client settings so that sign-in honors the same TLS
// and timeout options.
var (
	mu       sync.RWMutex
	settings *httpc.Httpc
)

// SetHTTP sets the client settings for identity provider requests. nil restores defaults.
func SetHTTP(h *httpc.Httpc) {
	mu.Lock()
	settings = h
	mu.Unlock()
}

// NewClient builds a resty client for identity provider requests.
// Sign-in is a single request, so pacing never applies here.
func NewClient() *resty.Client {
	mu.RLock()
	h := settings
	mu.RUnlock()
	if h == nil {
		return resty.New()
	}
	return (&httpc.Httpc{TlsConfig: h.TlsConfig, Timeout: h.Timeout}).New()
}
