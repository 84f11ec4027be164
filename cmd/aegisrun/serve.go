package main

import (
	"github.com/loykin/aegisrun/internal/demo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local test page and /health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := cfg.SetupLogging()
			if err != nil {
				return err
			}
			srv, err := demo.NewServer(cfg.Server, logger)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.Int("port", 0, "listen port (default $PORT or 3000)")
	f.String("static-dir", "", "serve files from this directory instead of the built-in page")
	_ = v.BindPFlag("port", f.Lookup("port"))
	_ = v.BindPFlag("static_dir", f.Lookup("static-dir"))
	return cmd
}
