package main

import (
	"github.com/loykin/aegisrun/internal/config"
	"github.com/spf13/viper"
)

// loadConfig builds the run configuration: file and environment through
// config.Load, then command-line flags on top.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v.GetString("config"), v.GetString("env_file"))
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, v)
	return cfg, nil
}

// applyOverrides copies explicitly set flags into cfg. Keys are only read when
// set, so an untouched flag never clobbers a value from the file or environment.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	setString("log_level", &cfg.Logging.Level)
	setString("log_format", &cfg.Logging.Format)
	setString("base_url", &cfg.API.BaseURL)
	setString("receipts_dir", &cfg.Run.ReceiptsDir)
	setString("identity_provider", &cfg.Identity.Provider)
	setString("static_dir", &cfg.Server.StaticDir)
	if v.IsSet("category") {
		// an explicitly empty category disables the filtered query's filter
		cfg.Run.Category = v.GetString("category")
	}
	if v.IsSet("port") {
		if p := v.GetInt("port"); p > 0 {
			cfg.Server.Port = p
		}
	}
}
