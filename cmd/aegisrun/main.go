package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd wires every subcommand to v. Running the root command without a
// subcommand runs the scenario.
func newRootCmd(v *viper.Viper) *cobra.Command {
	run := newRunCmd(v)
	root := &cobra.Command{
		Use:           "aegisrun",
		Short:         "End-to-end test harness for the Project Aegis API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}

	v.SetDefault("config", "")
	v.SetDefault("env_file", ".env")

	// Environment variables support: AEGIS_CONFIG, AEGIS_ENV_FILE, AEGIS_LOG_LEVEL, ...
	v.SetEnvPrefix("AEGIS")
	v.AutomaticEnv()

	pf := root.PersistentFlags()
	pf.String("config", v.GetString("config"), "path to an optional config yaml")
	pf.String("env-file", v.GetString("env_file"), "dotenv file loaded before reading the environment")
	pf.String("log-level", "", "log level: error, warn, info, debug")
	pf.String("log-format", "", "log format: text, json, color")
	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("env_file", pf.Lookup("env-file"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log_format", pf.Lookup("log-format"))

	// the root command runs the scenario too, so it accepts the run flags
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(run)
	root.AddCommand(newServeCmd(v))
	root.AddCommand(newValidateCmd(v))
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	ctx, stop := signalContext()
	defer stop()
	if err := newRootCmd(viper.GetViper()).ExecuteContext(ctx); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
