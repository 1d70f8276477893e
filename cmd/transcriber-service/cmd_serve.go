package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/drive-transcriber/internal/api/handler"
	"github.com/cuongbtq/drive-transcriber/internal/api/router"
	apistorage "github.com/cuongbtq/drive-transcriber/internal/api/storage"
	"github.com/cuongbtq/drive-transcriber/internal/config"
	"github.com/cuongbtq/drive-transcriber/internal/notify"
	"github.com/cuongbtq/drive-transcriber/internal/worker"
	"github.com/cuongbtq/drive-transcriber/shared/postgresql"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the folder watcher and the HTTP API",
		Long: `Run the folder watcher and the HTTP API.

The watcher scans the source folder once at startup and then on every
interval tick. The API serves job state, a manual scan trigger, and live
job events over server-sent events (/api/v1/events) and WebSocket (/ws).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts, (*config.Config).Validate)
	if err != nil {
		return err
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting transcriber service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("backend", cfg.Watcher.Backend),
	)

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
		hub:    notify.NewHub(cfg.Notify.BufferSize, appLogger.With(slog.String("component", "hub")).Logger),
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

	r := initRouter(cfg, appLogger.With(slog.String("component", "api")).Logger, dbClient, scheduler, deps.hub)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	g.Go(func() error {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Duration("read_timeout", cfg.Server.ReadTimeout),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		// Live event streams end when the hub closes their subscriptions
		deps.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server forced to shutdown",
				slog.Any("error", err),
			)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(
	cfg *config.Config,
	logger *slog.Logger,
	dbClient *postgresql.Client,
	scheduler *worker.Scheduler,
	hub *notify.Hub,
) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		ServiceName:    cfg.App.Name,
		Logger:         logger,
		Jobs:           apistorage.NewStorage(dbClient.GetDB()),
		Database:       dbClient,
		Scanner:        scheduler,
		Hub:            hub,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
}
