package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/drive-transcriber/internal/config"
	"github.com/cuongbtq/drive-transcriber/internal/filestore/gdrive"
	"github.com/cuongbtq/drive-transcriber/internal/filestore/objectstore"
	"github.com/cuongbtq/drive-transcriber/internal/notify"
	"github.com/cuongbtq/drive-transcriber/internal/transcriber"
	"github.com/cuongbtq/drive-transcriber/internal/worker"
	jobstorage "github.com/cuongbtq/drive-transcriber/internal/worker/storage"
	"github.com/cuongbtq/drive-transcriber/shared/postgresql"
	"github.com/cuongbtq/drive-transcriber/shared/rabbitmq"
)

// watcherDeps are the long-lived clients the watcher is built from
type watcherDeps struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *postgresql.Client
	hub    *notify.Hub
	rabbit *rabbitmq.Client
}

// newFileStore picks the configured file store backend
func newFileStore(cfg *config.Config, logger *slog.Logger) (worker.FileStore, error) {
	switch cfg.Watcher.Backend {
	case config.BackendDrive:
		return gdrive.NewStore(&gdrive.Config{
			ServiceAccountEmail: cfg.Drive.ServiceAccountEmail,
			PrivateKey:          cfg.Drive.PrivateKey,
			Scopes:              cfg.Drive.Scopes,
		}, logger.With(slog.String("component", "gdrive"))), nil
	case config.BackendMinIO:
		return objectstore.NewStore(&objectstore.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
		}, logger.With(slog.String("component", "objectstore"))), nil
	default:
		return nil, fmt.Errorf("unknown watcher backend: %q", cfg.Watcher.Backend)
	}
}

// newNotifier fans job events out to the in-process hub and, when
// configured, to the RabbitMQ exchange
func newNotifier(deps *watcherDeps) notify.Multi {
	var notifiers notify.Multi
	if deps.hub != nil {
		notifiers = append(notifiers, deps.hub)
	}
	if deps.rabbit != nil {
		notifiers = append(notifiers, notify.NewAMQPNotifier(deps.rabbit, deps.cfg.Notify.EventSource, deps.logger))
	}
	return notifiers
}

// newScheduler wires the file store, transcriber, job store and notifiers
// into a scheduler. The caller still has to Prepare it.
func newScheduler(ctx context.Context, deps *watcherDeps) (*worker.Scheduler, error) {
	cfg := deps.cfg

	files, err := newFileStore(cfg, deps.logger)
	if err != nil {
		return nil, err
	}

	geminiAPI, err := transcriber.NewGeminiAPI(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	transcription := transcriber.New(geminiAPI, files, transcriber.Config{
		Model:          cfg.Gemini.Model,
		Prompt:         cfg.Gemini.Prompt,
		PollDelay:      cfg.Gemini.PollDelay,
		MaxPolls:       cfg.Gemini.MaxPolls,
		InlineMaxBytes: cfg.Gemini.InlineMaxBytes,
	}, deps.logger.With(slog.String("component", "transcriber")))

	jobs := jobstorage.NewStorage(deps.db.GetDB(), deps.logger)
	archiver := worker.NewFolderArchiver(files, cfg.Watcher.CompletedFolderName, deps.logger)

	processor := worker.NewProcessor(files, jobs, transcription, archiver, newNotifier(deps), worker.ProcessorConfig{
		SourceFolderID: cfg.Watcher.SourceFolderID,
		MimeType:       cfg.Watcher.MimeType,
		PageSize:       cfg.Watcher.PageSize,
		Concurrency:    cfg.Worker.Concurrency,
		FileTimeout:    cfg.Worker.FileTimeout,
	}, deps.logger)

	return worker.NewScheduler(&worker.SchedulerConfig{
		Logger:         deps.logger,
		FileStore:      files,
		Archiver:       archiver,
		Processor:      processor,
		SourceFolderID: cfg.Watcher.SourceFolderID,
		Interval:       cfg.Watcher.Interval,
	}), nil
}
