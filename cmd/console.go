package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobcontrol/internal/server"
)

// newConsoleCmd creates the 'console' subcommand. The terminal UI and the HTTP
// API run in one process against the same controller; logs go to a file so
// they do not corrupt the screen.
func newConsoleCmd() *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run the interactive terminal console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			if logFile == "" {
				logFile = cfg.Console.LogFile
			}
			app, err := buildApp(cmd.Context(), cfg, server.WithLogOutputs(logFile))
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			return app.RunConsole(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "log destination (defaults to console.log_file)")
	return cmd
}
