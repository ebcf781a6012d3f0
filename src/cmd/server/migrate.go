package main

import (
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/postgres"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/api-sage/ledger-workflow-engine/src/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := postgres.RunMigrations(cmd.Context(), db, migrations.Files); err != nil {
				return err
			}

			logger.Info("migrations completed successfully", nil)
			return nil
		},
	}
}
