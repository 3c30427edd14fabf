package migrate

import (
	"github.com/spf13/cobra"

	"github.com/s-hit/mshd-backend/internal/app"
	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// Command creates the migrate command, which creates or updates the
// database schema and exits.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			central, err := logger.NewCentralLogger(&settings.Logging)
			if err != nil {
				return err
			}
			defer central.Close()

			db, err := app.Migrate(cmd.Context(), settings, central.Module("datastore"))
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
