package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobcontrol/internal/server"
)

// newServeCmd creates the 'serve' subcommand, which runs the HTTP API until
// interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the job control HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			app, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}

// buildApp is the application factory. Tests replace it.
var buildApp = server.Build
