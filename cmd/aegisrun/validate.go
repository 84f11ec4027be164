package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/loykin/aegisrun/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without touching the network",
		Long: `Load the configuration from the config file, the dotenv file, the environment
and flags, then check that every required setting is present. This command checks:
- identity provider settings (FIREBASE_*) for the firebase provider
- test user credentials (TEST_USER_EMAIL, TEST_USER_PASSWORD)
- target API base URL and logging settings
- the receipts directory can be listed (warning only)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return validateConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

func validateConfig(out io.Writer, cfg *config.Config) error {
	_, _ = fmt.Fprintf(out, "Identity provider: %s\n", cfg.IdentityProvider())
	_, _ = fmt.Fprintf(out, "Target API:        %s\n", cfg.API.BaseURL)
	_, _ = fmt.Fprintf(out, "Receipts dir:      %s\n", cfg.Run.ReceiptsDir)
	_, _ = fmt.Fprintf(out, "Prompts:           %d\n", len(cfg.Run.Prompts))

	if info, err := os.Stat(cfg.Run.ReceiptsDir); err != nil || !info.IsDir() {
		_, _ = fmt.Fprintf(out, "Warning: receipts directory is not readable; the upload stage will be skipped\n")
	}

	if err := cfg.Validate(); err != nil {
		var mf *config.MissingFieldsError
		if errors.As(err, &mf) {
			_, _ = fmt.Fprintln(out, "\nMissing settings:")
			for _, f := range mf.Fields {
				_, _ = fmt.Fprintf(out, "  - %s\n", f)
			}
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	_, _ = fmt.Fprintln(out, "\nConfiguration is valid!")
	return nil
}
