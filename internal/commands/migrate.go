package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nuacha-app/nuacha/internal/store"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.logger.Debug("migrating", zap.String("driver", cfg.Database.Driver))
			if err := store.Migrate(cfg.Database.Driver, a.dsn(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database is up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}
