// Package cmd defines and implements the CLI commands for the jobcontrol executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobcontrol/internal/config"
)

// configKeyType is the key for storing the loaded Config in the context.
type configKeyType string

const configKey configKeyType = "config"

type rootOptions struct {
	cfgFile string
	envFile string
}

// loadConfig is a variable so tests can substitute a fixed configuration.
var loadConfig = config.Load

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "jobcontrol",
		Short: "Operator control for a single interlocked job.",
		Long: `jobcontrol starts, stops, and emergency-stops one job at a requested
speed, refusing to start while the safety interlock is active. It exposes the
controller over HTTP and through an interactive terminal console.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Load configuration once, before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.cfgFile, opts.envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, &cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, json, or toml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with JOBCONTROL_* overrides; ignored when missing")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConsoleCmd())
	return cmd
}

func resolveConfig(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
