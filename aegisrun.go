package aegisrun

import (
	"context"

	"github.com/loykin/aegisrun/internal/auth"
	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/config"
	"github.com/loykin/aegisrun/internal/harness"
)

// Re-export commonly used types for public API

// Config is the harness configuration.
type Config = config.Config

// MissingFieldsError lists required settings that are empty.
type MissingFieldsError = config.MissingFieldsError

// ErrConfig marks configuration failures.
var ErrConfig = config.ErrConfig

// ErrAuth marks sign-in failures.
var ErrAuth = auth.ErrAuth

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig layers defaults, an optional YAML file, an optional dotenv file and
// the process environment.
func LoadConfig(path, dotenvPath string) (*Config, error) { return config.Load(path, dotenvPath) }

// Orchestrator runs the end-to-end scenario.
type Orchestrator = harness.Orchestrator

// State is the point a run has reached.
type State = harness.State

const (
	StateUnauthenticated       = harness.StateUnauthenticated
	StateAuthenticated         = harness.StateAuthenticated
	StateUploadsAttempted      = harness.StateUploadsAttempted
	StateQueriesAttempted      = harness.StateQueriesAttempted
	StateAgentQueriesAttempted = harness.StateAgentQueriesAttempted
	StateProfileChecked        = harness.StateProfileChecked
	StateAgentSmokeChecked     = harness.StateAgentSmokeChecked
	StateDone                  = harness.StateDone
	StateAborted               = harness.StateAborted
)

// NewOrchestrator creates an orchestrator logging through logger (nil = default logger).
func NewOrchestrator(cfg *Config, logger *Logger) *Orchestrator {
	return harness.New(cfg, harness.WithLogger(logger))
}

// Run executes the scenario once with the default logger. Only configuration
// and sign-in failures are returned.
func Run(ctx context.Context, cfg *Config) error {
	return harness.New(cfg).Run(ctx)
}

// Credential is an acquired bearer token.
type Credential = auth.Credential

// AuthMethod Plugin-style provider interface and registration
type AuthMethod = auth.Method

type AuthFactory = auth.Factory

// RegisterAuthProvider exposes custom identity provider registration for library users.
func RegisterAuthProvider(typ string, f AuthFactory) { auth.Register(typ, f) }

// AcquireCredential signs in with the provider registered under typ.
func AcquireCredential(ctx context.Context, typ string, spec map[string]interface{}) (*Credential, error) {
	return auth.Acquire(ctx, typ, spec)
}

// Logger is the structured logger used throughout the harness.
type Logger = common.Logger

type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

func NewLogger(level LogLevel) *Logger      { return common.NewLogger(level) }
func NewJSONLogger(level LogLevel) *Logger  { return common.NewJSONLogger(level) }
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }
func SetDefaultLogger(logger *Logger)       { common.SetDefaultLogger(logger) }
func GetLogger() *Logger                    { return common.GetLogger() }

// EnableMasking toggles global redaction of secrets in log output.
func EnableMasking(enabled bool) { common.EnableMasking(enabled) }
