package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/metrics"
)

const (
	triggerStartup  = "startup"
	triggerInterval = "interval"
	triggerManual   = "manual"
)

// cycleRunner runs one scan cycle against the completed folder
type cycleRunner interface {
	RunOnce(ctx context.Context, completedFolderID string) (CycleResult, error)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Logger         *slog.Logger
	FileStore      FileStore
	Archiver       Archiver
	Processor      cycleRunner
	SourceFolderID string
	Interval       time.Duration
}

// Scheduler runs the processor immediately and then on a fixed interval.
// Cycles never overlap; ticks that fire while one is in flight are skipped.
type Scheduler struct {
	logger            *slog.Logger
	files             FileStore
	archiver          Archiver
	processor         cycleRunner
	sourceFolderID    string
	interval          time.Duration
	completedFolderID string

	running   atomic.Bool
	triggerCh chan struct{}
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *SchedulerConfig) *Scheduler {
	return &Scheduler{
		logger:         cfg.Logger,
		files:          cfg.FileStore,
		archiver:       cfg.Archiver,
		processor:      cfg.Processor,
		sourceFolderID: cfg.SourceFolderID,
		interval:       cfg.Interval,
		triggerCh:      make(chan struct{}, 1),
		stopChan:       make(chan struct{}),
	}
}

// Prepare authenticates against the file store and resolves the completed
// folder. Both failures are fatal for the process.
func (s *Scheduler) Prepare(ctx context.Context) error {
	if err := s.files.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate file store: %w", err)
	}

	folderID, err := s.archiver.EnsureDestination(ctx, s.sourceFolderID)
	if err != nil {
		return fmt.Errorf("failed to ensure completed folder: %w", err)
	}
	s.completedFolderID = folderID

	s.logger.Info("Watcher prepared",
		slog.String("source_folder_id", s.sourceFolderID),
		slog.String("completed_folder_id", folderID),
	)

	return nil
}

// CompletedFolderID returns the destination resolved by Prepare
func (s *Scheduler) CompletedFolderID() string {
	return s.completedFolderID
}

// Start runs the watch loop until ctx is canceled or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	if s.completedFolderID == "" {
		if err := s.Prepare(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("Starting scheduler",
		slog.Duration("interval", s.interval),
	)

	s.launch(ctx, triggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context canceled, stopping...")
			s.wg.Wait()
			return nil

		case <-s.stopChan:
			s.wg.Wait()
			return nil

		case <-ticker.C:
			s.launch(ctx, triggerInterval)

		case <-s.triggerCh:
			s.launch(ctx, triggerManual)
		}
	}
}

// Trigger requests an extra cycle. It returns false when a cycle is already
// in flight or a request is already queued.
func (s *Scheduler) Trigger() bool {
	if s.running.Load() {
		metrics.IncreaseCycleSkippedMetric(triggerManual)
		return false
	}

	select {
	case s.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// Running reports whether a cycle is in flight
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// launch starts a cycle in the background unless one is already running
func (s *Scheduler) launch(ctx context.Context, trigger string) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous cycle still running, skipping",
			slog.String("trigger", trigger),
		)
		metrics.IncreaseCycleSkippedMetric(trigger)
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Recovered panic in scan cycle",
					slog.Any("panic", r),
				)
				metrics.IncreaseCycleFailuresMetric()
			}
		}()

		_, _ = s.RunCycle(ctx, trigger)
	}()

	return true
}

// RunCycle runs one cycle synchronously. A listing failure is logged and
// returned; it never stops the scheduler.
func (s *Scheduler) RunCycle(ctx context.Context, trigger string) (CycleResult, error) {
	start := time.Now()
	metrics.IncreaseCyclesTotalMetric(trigger)

	s.logger.Info("Checking for new files",
		slog.String("trigger", trigger),
	)

	result, err := s.processor.RunOnce(ctx, s.completedFolderID)
	metrics.ObserveCycleDuration(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Scan cycle failed",
			slog.String("trigger", trigger),
			slog.Any("error", err),
		)
		metrics.IncreaseCycleFailuresMetric()
		return result, err
	}

	s.logger.Info("Scan cycle finished",
		slog.String("trigger", trigger),
		slog.Int("listed", result.Listed),
		slog.Int("completed", result.Completed),
		slog.Int("archived", result.Archived),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}
