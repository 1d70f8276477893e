package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `id, file_id, file_name, status, transcript, archived_at, created_at, updated_at`

// Storage handles all job table operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// FindByFileID returns the job for a file, or domain.ErrJobNotFound
func (s *Storage) FindByFileID(ctx context.Context, fileID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM transcription_jobs WHERE file_id = $1`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// Create inserts a pending job. The unique constraint on file_id makes a
// concurrent second insert a no-op, reported as domain.ErrJobExists.
func (s *Storage) Create(ctx context.Context, fileID, fileName string) (*domain.Job, error) {
	query := `
		INSERT INTO transcription_jobs (id, file_id, file_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (file_id) DO NOTHING
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, uuid.NewString(), fileID, fileName, domain.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobExists
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("file_id", fileID),
	)

	return &job, nil
}

// MarkCompleted stores the transcript and moves the job from pending to completed.
// A job that is already completed is never rewritten.
func (s *Storage) MarkCompleted(ctx context.Context, fileID, transcript string) (*domain.Job, error) {
	query := `
		UPDATE transcription_jobs
		SET status = $1,
		    transcript = $2,
		    updated_at = NOW()
		WHERE file_id = $3
		  AND status = $4
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusCompleted, transcript, fileID, domain.JobStatusPending)
	if err == nil {
		s.logger.Info("Job status updated",
			slog.String("file_id", fileID),
			slog.String("status", job.Status),
		)
		return &job, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to complete job: %w", err)
	}

	if _, findErr := s.FindByFileID(ctx, fileID); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrJobAlreadyCompleted
}

// MarkArchived records that the file now lives in the completed folder
func (s *Storage) MarkArchived(ctx context.Context, fileID string) (*domain.Job, error) {
	query := `
		UPDATE transcription_jobs
		SET archived_at = COALESCE(archived_at, NOW()),
		    updated_at = NOW()
		WHERE file_id = $1
		  AND status = $2
		RETURNING ` + jobColumns

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, fileID, domain.JobStatusCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotCompleted, fileID)
		}
		return nil, fmt.Errorf("failed to mark job archived: %w", err)
	}

	return &job, nil
}
