package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/drive-transcriber/internal/config"
	"github.com/spf13/cobra"
)

const triggerScan = "scan"

func newScanCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and exit",
		Long: `Run a single scan cycle and exit.

Job events go to RabbitMQ when it is enabled; there are no live listeners.
The command fails when any file in the cycle failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runScan(ctx, opts)
		},
	}
}

func runScan(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts, (*config.Config).Validate)
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

	if cfg.Database.AutoMigrate {
		if err := dbClient.Migrate(ctx); err != nil {
			return err
		}
	}

	deps := &watcherDeps{
		cfg:    cfg,
		logger: appLogger.Logger,
		db:     dbClient,
	}

	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		deps.rabbit = rabbitClient
	}

	scheduler, err := newScheduler(ctx, deps)
	if err != nil {
		return err
	}

	if err := scheduler.Prepare(ctx); err != nil {
		return err
	}

	result, err := scheduler.RunCycle(ctx, triggerScan)
	if err != nil {
		return err
	}

	appLogger.Info("Scan finished",
		slog.Int("listed", result.Listed),
		slog.Int("completed", result.Completed),
		slog.Int("archived", result.Archived),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d files failed: %w", result.Failed, result.Listed, errors.Join(result.Failures...))
	}

	return nil
}
