package serve

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/s-hit/mshd-backend/internal/app"
	"github.com/s-hit/mshd-backend/internal/conf"
)

// Command creates the serve command, which runs the HTTP API until
// SIGINT or SIGTERM.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Open the database, migrate its schema and serve the API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, settings)
			if err != nil {
				return err
			}
			runErr := a.Run(ctx)
			if err := a.Close(); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("host", "", "Interface to listen on (default: all)")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().String("db", "", "SQLite database path")

	bindings := map[string]string{
		"server.host":          "host",
		"server.port":          "port",
		"database.sqlite.path": "db",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
