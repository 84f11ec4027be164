package httpc

import (
	"crypto/tls"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/aegisrun/internal/util"
	"golang.org/x/time/rate"
)

// Httpc describes how outbound resty clients are built.
type Httpc struct {
	TlsConfig *tls.Config
	// Timeout is the per-request timeout; zero keeps the client default (none).
	Timeout time.Duration
	// MinInterval spaces consecutive requests of one client; zero disables pacing.
	MinInterval time.Duration
}

// New returns a resty.Client configured according to the receiver's settings.
// Defaults: MinVersion TLS1.2 when a TLS config is given with MinVersion zero.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	if h == nil {
		return c
	}
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	if lim := NewPacer(h.MinInterval); lim != nil {
		c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return lim.Wait(r.Context())
		})
	}
	cfg := h.TlsConfig
	if cfg == nil {
		return c
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	c.SetTLSClientConfig(cfg)
	return c
}

// NewPacer returns a limiter admitting one request per interval, or nil when interval <= 0.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// ParseTLSVersion converts a TLS version string to the corresponding crypto/tls constant.
// Supports "1.2", "12", "tls1.2", "tls12" and the same forms for 1.0, 1.1 and 1.3.
// Returns 0 if the version string is not recognized.
func ParseTLSVersion(version string) uint16 {
	switch util.TrimAndLower(version) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

// TLSConfig builds a client TLS config, or nil when every option is at its default.
func TLSConfig(insecure bool, minVersion, maxVersion string) *tls.Config {
	minV := ParseTLSVersion(minVersion)
	maxV := ParseTLSVersion(maxVersion)
	if !insecure && minV == 0 && maxV == 0 {
		return nil
	}
	cfg := &tls.Config{MinVersion: minV, MaxVersion: maxV}
	if insecure {
		// #nosec G402 -- opt-in for self-signed staging backends
		cfg.InsecureSkipVerify = true
	}
	return cfg
}
