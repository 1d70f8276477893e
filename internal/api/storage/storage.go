package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage is the read side of the job table
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) GetJobByFileID(ctx context.Context, fileID string) (*domain.Job, error) {
	var job domain.Job
	query := `
		SELECT
			id, file_id, file_name, status,
			transcript, archived_at, created_at, updated_at
		FROM transcription_jobs
		WHERE file_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor marks the last row of the previous page
type JobCursor struct {
	CreatedAt time.Time
	ID        string
}

// ListJobs returns up to PageSize+1 jobs, newest first. The extra row tells
// the caller whether another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
        SELECT
            id, file_id, file_name, status,
            transcript, archived_at, created_at, updated_at
        FROM transcription_jobs
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
