package main

import (
	"fmt"

	"github.com/cuongbtq/drive-transcriber/internal/config"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, (*config.Config).ValidateDatabase)
			if err != nil {
				return err
			}

			appLogger, err := initLogger(&cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer appLogger.Close()

			dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer dbClient.Close()

			return dbClient.Migrate(cmd.Context())
		},
	}
}
