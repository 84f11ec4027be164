package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/loykin/aegisrun/internal/auth/firebase"
	"github.com/loykin/aegisrun/internal/constants"
	"github.com/loykin/aegisrun/internal/httpc"
	"github.com/loykin/aegisrun/internal/util"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks every configuration failure. A run never touches the network after one.
var ErrConfig = errors.New("configuration error")

// MissingFieldsError lists required settings that are empty, by environment variable name.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required configuration: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrConfig }

type FirebaseConfig struct {
	APIKey            string `mapstructure:"api_key" yaml:"api_key" env:"FIREBASE_API_KEY"`
	AuthDomain        string `mapstructure:"auth_domain" yaml:"auth_domain" env:"FIREBASE_AUTH_DOMAIN"`
	ProjectID         string `mapstructure:"project_id" yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	StorageBucket     string `mapstructure:"storage_bucket" yaml:"storage_bucket" env:"FIREBASE_STORAGE_BUCKET"`
	MessagingSenderID string `mapstructure:"messaging_sender_id" yaml:"messaging_sender_id" env:"FIREBASE_MESSAGING_SENDER_ID"`
	AppID             string `mapstructure:"app_id" yaml:"app_id" env:"FIREBASE_APP_ID"`
}

type TestUserConfig struct {
	Email    string `mapstructure:"email" yaml:"email" env:"TEST_USER_EMAIL"`
	Password string `mapstructure:"password" yaml:"password" env:"TEST_USER_PASSWORD"`
}

type IdentityConfig struct {
	// Provider type key ("firebase", "oauth2")
	Provider string `mapstructure:"provider" yaml:"provider" env:"AEGIS_IDENTITY_PROVIDER"`
	// URL overrides the provider origin (firebase identity toolkit, emulator)
	URL string `mapstructure:"url" yaml:"url" env:"AEGIS_IDENTITY_URL"`
	// Options are passed to the provider factory as-is (oauth2 client_id, token_url, scopes...)
	Options map[string]interface{} `mapstructure:"options" yaml:"options"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url" env:"AEGIS_BASE_URL"`
}

type RunConfig struct {
	ReceiptsDir string        `mapstructure:"receipts_dir" yaml:"receipts_dir" env:"AEGIS_RECEIPTS_DIR"`
	Category    string        `mapstructure:"category" yaml:"category" env:"AEGIS_CATEGORY"`
	Prompts     []string      `mapstructure:"prompts" yaml:"prompts" env:"AEGIS_PROMPTS,separator=|"`
	SmokePrompt string        `mapstructure:"smoke_prompt" yaml:"smoke_prompt" env:"AEGIS_SMOKE_PROMPT"`
	QueryWindow time.Duration `mapstructure:"query_window" yaml:"query_window" env:"AEGIS_QUERY_WINDOW"`
}

type ClientConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" env:"AEGIS_CLIENT_TIMEOUT"`
	MinInterval   time.Duration `mapstructure:"min_interval" yaml:"min_interval" env:"AEGIS_CLIENT_MIN_INTERVAL"`
	Insecure      bool          `mapstructure:"insecure" yaml:"insecure" env:"AEGIS_CLIENT_INSECURE"`
	MinTLSVersion string        `mapstructure:"min_tls_version" yaml:"min_tls_version" env:"AEGIS_CLIENT_MIN_TLS_VERSION"`
	MaxTLSVersion string        `mapstructure:"max_tls_version" yaml:"max_tls_version" env:"AEGIS_CLIENT_MAX_TLS_VERSION"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port" env:"PORT"`
	StaticDir       string        `mapstructure:"static_dir" yaml:"static_dir" env:"AEGIS_STATIC_DIR"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" env:"AEGIS_SHUTDOWN_TIMEOUT"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level" env:"AEGIS_LOG_LEVEL"`    // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format" env:"AEGIS_LOG_FORMAT"` // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"`
	Color         *bool  `mapstructure:"color" yaml:"color"`
}

// Config is built once at startup and handed to the harness and the demo server.
type Config struct {
	Firebase FirebaseConfig `mapstructure:"firebase" yaml:"firebase"`
	TestUser TestUserConfig `mapstructure:"test_user" yaml:"test_user"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Run      RunConfig      `mapstructure:"run" yaml:"run"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// Default returns a Config holding the built-in defaults.
func Default() *Config {
	return &Config{
		Identity: IdentityConfig{Provider: constants.DefaultIdentityProvider},
		API:      APIConfig{BaseURL: constants.DefaultBaseURL},
		Run: RunConfig{
			ReceiptsDir: constants.DefaultReceiptsDir,
			Category:    constants.DefaultCategory,
			Prompts:     append([]string(nil), constants.DefaultPrompts...),
			SmokePrompt: constants.DefaultSmokePrompt,
			QueryWindow: constants.DefaultQueryWindow,
		},
		Server: ServerConfig{
			Port:            constants.DefaultDemoPort,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load layers defaults, the optional YAML file at path, the optional dotenv file
// and the process environment, in that order of increasing precedence.
// Missing files are skipped only when their path is empty or, for the dotenv
// file, when it does not exist.
func Load(path, dotenvPath string) (*Config, error) {
	cfg := Default()
	if p, ok := util.TrimEmptyCheck(path); ok {
		if err := cfg.LoadFile(p); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, p, err)
		}
	}
	if p, ok := util.TrimEmptyCheck(dotenvPath); ok {
		if err := LoadDotenv(p); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, p, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrConfig, err)
	}
	return cfg, nil
}

// LoadFile decodes a YAML document over the receiver.
func (c *Config) LoadFile(path string) error {
	clean := filepath.Clean(path)
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	return dec.Decode(c)
}

// LoadDotenv exports the variables of a dotenv file into the process environment.
// Variables already set win over the file. A missing file is not an error.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from the process environment. Unset variables leave
// the current value untouched.
func (c *Config) ApplyEnv() error {
	for _, section := range []interface{}{
		&c.Firebase, &c.TestUser, &c.Identity, &c.API,
		&c.Run, &c.Client, &c.Server, &c.Logging,
	} {
		if _, err := env.UnmarshalFromEnviron(section); err != nil {
			return err
		}
	}
	return nil
}

type requiredField struct {
	name  string
	value string
}

// Validate reports every empty required setting at once, by environment variable name.
// The firebase provider needs the six project settings plus the test user; other
// providers only need the test user.
func (c *Config) Validate() error {
	fields := []requiredField{}
	if c.provider() == "firebase" {
		fields = append(fields,
			requiredField{"FIREBASE_API_KEY", c.Firebase.APIKey},
			requiredField{"FIREBASE_AUTH_DOMAIN", c.Firebase.AuthDomain},
			requiredField{"FIREBASE_PROJECT_ID", c.Firebase.ProjectID},
			requiredField{"FIREBASE_STORAGE_BUCKET", c.Firebase.StorageBucket},
			requiredField{"FIREBASE_MESSAGING_SENDER_ID", c.Firebase.MessagingSenderID},
			requiredField{"FIREBASE_APP_ID", c.Firebase.AppID},
		)
	}
	fields = append(fields,
		requiredField{"TEST_USER_EMAIL", c.TestUser.Email},
		requiredField{"TEST_USER_PASSWORD", c.TestUser.Password},
		requiredField{"AEGIS_BASE_URL", c.API.BaseURL},
	)

	var missing []string
	for _, f := range fields {
		if _, ok := util.TrimEmptyCheck(f.value); !ok {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	if _, err := c.parseLogLevel(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

func (c *Config) provider() string {
	return util.TrimWithDefault(util.TrimAndLower(c.Identity.Provider), constants.DefaultIdentityProvider)
}

// IdentityProvider returns the normalized provider type key.
func (c *Config) IdentityProvider() string { return c.provider() }

// IdentitySpec builds the spec map handed to the provider factory. Options from
// the config file are applied first; the typed settings override them.
func (c *Config) IdentitySpec() map[string]interface{} {
	spec := map[string]interface{}{}
	for k, v := range c.Identity.Options {
		spec[k] = v
	}
	switch c.provider() {
	case "firebase":
		fb := firebase.Config{
			APIKey:            c.Firebase.APIKey,
			AuthDomain:        c.Firebase.AuthDomain,
			ProjectID:         c.Firebase.ProjectID,
			StorageBucket:     c.Firebase.StorageBucket,
			MessagingSenderID: c.Firebase.MessagingSenderID,
			AppID:             c.Firebase.AppID,
			Email:             c.TestUser.Email,
			Password:          c.TestUser.Password,
			IdentityURL:       c.Identity.URL,
		}
		for k, v := range fb.ToMap() {
			if s, _ := v.(string); s == "" {
				continue
			}
			spec[k] = v
		}
	default:
		if c.TestUser.Email != "" {
			spec["username"] = c.TestUser.Email
		}
		if c.TestUser.Password != "" {
			spec["password"] = c.TestUser.Password
		}
		if c.Identity.URL != "" {
			spec["token_url"] = c.Identity.URL
		}
	}
	return spec
}

// HTTP returns the outbound client settings for the target API and the identity provider.
func (c *Config) HTTP() *httpc.Httpc {
	return &httpc.Httpc{
		TlsConfig:   httpc.TLSConfig(c.Client.Insecure, c.Client.MinTLSVersion, c.Client.MaxTLSVersion),
		Timeout:     c.Client.Timeout,
		MinInterval: c.Client.MinInterval,
	}
}
