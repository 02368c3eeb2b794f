package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/logger"
	"github.com/itchan-dev/newsletter/internal/storage/pg"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Public.Storage.Driver != config.StorageDriverPostgres {
				return errors.New("migrations only apply to the postgres storage driver")
			}
			ctx := cmd.Context()
			storage, err := pg.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer storage.Cleanup()

			if err := storage.Migrate(ctx); err != nil {
				return err
			}
			version, err := storage.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			logger.Log.Info("migrations applied", "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
