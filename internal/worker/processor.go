package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/metrics"
	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

// ProcessorConfig holds the settings for one scan cycle
type ProcessorConfig struct {
	SourceFolderID string
	MimeType       string
	PageSize       int
	Concurrency    int
	FileTimeout    time.Duration
}

// CycleResult summarizes one scan cycle. A file whose archive step failed
// after completion is counted in both Completed and Failed.
type CycleResult struct {
	Listed    int
	Completed int
	Skipped   int
	Archived  int
	Failed    int
	Failures  []error
}

type fileOutcome int

const (
	outcomeNone fileOutcome = iota
	outcomeCompleted
	outcomeSkipped
	outcomeArchived
)

// Processor runs the scan-and-process cycle over the eligible files
type Processor struct {
	files       FileStore
	jobs        JobStore
	transcriber Transcriber
	archiver    Archiver
	notifier    Notifier
	config      ProcessorConfig
	locks       *keyLock
	logger      *slog.Logger
}

// NewProcessor creates a new Processor
func NewProcessor(
	files FileStore,
	jobs JobStore,
	transcriber Transcriber,
	archiver Archiver,
	notifier Notifier,
	config ProcessorConfig,
	logger *slog.Logger,
) *Processor {
	if config.MimeType == "" {
		config.MimeType = domain.DefaultMimeType
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	return &Processor{
		files:       files,
		jobs:        jobs,
		transcriber: transcriber,
		archiver:    archiver,
		notifier:    notifier,
		config:      config,
		locks:       newKeyLock(),
		logger:      logger,
	}
}

// RunOnce lists the eligible files and processes each one independently.
// Only a listing failure is returned; per-file failures are reported in the result.
func (p *Processor) RunOnce(ctx context.Context, completedFolderID string) (CycleResult, error) {
	var result CycleResult

	files, err := p.files.ListEligible(ctx, domain.FileFilter{
		MimeType:        p.config.MimeType,
		ParentID:        p.config.SourceFolderID,
		ExcludeParentID: completedFolderID,
		PageSize:        p.config.PageSize,
	})
	if err != nil {
		return result, fmt.Errorf("failed to list eligible files: %w", err)
	}

	result.Listed = len(files)
	if len(files) == 0 {
		p.logger.Info("No new files found")
		return result, nil
	}

	p.logger.Info("Found new files",
		slog.Int("count", len(files)),
	)

	var mu sync.Mutex
	err = p.dispatch(ctx, files, func(ctx context.Context, file domain.RemoteFile) error {
		outcome, err := p.processFile(ctx, file, completedFolderID)

		mu.Lock()
		defer mu.Unlock()

		switch outcome {
		case outcomeCompleted:
			result.Completed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeArchived:
			result.Archived++
		}
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, err)
		}
		return err
	})
	if err != nil {
		p.logger.Warn("Cycle interrupted",
			slog.Any("error", err),
		)
	}

	return result, nil
}

// processFile drives create-job, transcribe, complete, archive and notify for one file
func (p *Processor) processFile(ctx context.Context, file domain.RemoteFile, completedFolderID string) (outcome fileOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Recovered panic while processing file",
				slog.String("file_id", file.ID),
				slog.Any("panic", r),
			)
			outcome, err = outcomeNone, domain.NewFileError(file.ID, domain.StageProcess, fmt.Errorf("panic: %v", r))
		}
	}()

	unlock := p.locks.Lock(file.ID)
	defer unlock()

	fileCtx := ctx
	if p.config.FileTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, p.config.FileTimeout)
		defer cancel()
	}

	logger := p.logger.With(
		slog.String("file_id", file.ID),
		slog.String("file_name", file.Name),
	)

	// Step 1: Resolve the job record (existing or newly created)
	job, created, err := p.resolveJob(fileCtx, file)
	if err != nil {
		return p.fail(logger, file.ID, domain.StageJobStore, err)
	}

	if job.IsCompleted() {
		if job.IsArchived() {
			logger.Debug("Job already completed, skipping")
			metrics.IncreaseFilesProcessedMetric(metrics.OutcomeSkipped)
			return outcomeSkipped, nil
		}

		// Completed on an earlier cycle but the move did not happen
		logger.Warn("Retrying archive for completed job")
		metrics.IncreaseArchiveRetriesMetric()
		if _, err := p.archive(fileCtx, file.ID, completedFolderID); err != nil {
			return p.fail(logger, file.ID, domain.StageArchive, err)
		}
		metrics.IncreaseFilesProcessedMetric(metrics.OutcomeArchived)
		logger.Info("Archived completed job")
		return outcomeArchived, nil
	}

	if created {
		p.notifier.OnPending(ctx, job)
	} else {
		logger.Info("Resuming pending job",
			slog.String("job_id", job.ID),
		)
	}

	// Step 2: Transcribe; the job stays pending on failure
	logger.Info("Transcribing file")
	transcript, err := p.transcriber.Transcribe(fileCtx, file)
	if err != nil {
		return p.fail(logger, file.ID, domain.StageTranscribe, err)
	}

	// Step 3: Store the transcript
	job, err = p.jobs.MarkCompleted(fileCtx, file.ID, transcript)
	if err != nil {
		return p.fail(logger, file.ID, domain.StageComplete, err)
	}
	metrics.IncreaseFilesProcessedMetric(metrics.OutcomeCompleted)

	// Step 4: Archive; the job is not rolled back if this fails
	var archiveErr error
	if archived, err := p.archive(fileCtx, file.ID, completedFolderID); err != nil {
		archiveErr = err
	} else {
		job = archived
	}

	// Step 5: Notify completion with the latest record
	p.notifier.OnCompleted(ctx, job)

	if archiveErr != nil {
		_, failErr := p.fail(logger, file.ID, domain.StageArchive, archiveErr)
		return outcomeCompleted, failErr
	}

	logger.Info("Transcription completed",
		slog.String("job_id", job.ID),
	)
	return outcomeCompleted, nil
}

// resolveJob returns the job for file, creating it when none exists.
// created reports whether this call inserted the record.
func (p *Processor) resolveJob(ctx context.Context, file domain.RemoteFile) (*domain.Job, bool, error) {
	job, err := p.jobs.FindByFileID(ctx, file.ID)
	if err == nil {
		return job, false, nil
	}
	if !errors.Is(err, domain.ErrJobNotFound) {
		return nil, false, fmt.Errorf("failed to find job: %w", err)
	}

	job, err = p.jobs.Create(ctx, file.ID, file.Name)
	if err == nil {
		return job, true, nil
	}
	if !errors.Is(err, domain.ErrJobExists) {
		return nil, false, fmt.Errorf("failed to create job: %w", err)
	}

	// Lost the insert race; use the winner's record
	job, err = p.jobs.FindByFileID(ctx, file.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload job: %w", err)
	}
	return job, false, nil
}

func (p *Processor) archive(ctx context.Context, fileID, completedFolderID string) (*domain.Job, error) {
	if err := p.archiver.Move(ctx, fileID, completedFolderID); err != nil {
		return nil, err
	}

	// The file has left the source folder and will not be listed again,
	// so this is the only chance to record the move
	job, err := p.jobs.MarkArchived(ctx, fileID)
	if err != nil && !errors.Is(err, domain.ErrJobNotCompleted) {
		p.logger.Warn("Failed to mark job archived, retrying",
			slog.String("file_id", fileID),
			slog.Any("error", err),
		)
		job, err = p.jobs.MarkArchived(ctx, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark job archived: %w", err)
	}
	return job, nil
}

func (p *Processor) fail(logger *slog.Logger, fileID string, stage domain.Stage, err error) (fileOutcome, error) {
	logger.Error("File processing failed",
		slog.String("stage", string(stage)),
		slog.Any("error", err),
	)
	metrics.IncreaseFilesFailedMetric(string(stage))
	return outcomeNone, domain.NewFileError(fileID, stage, err)
}
