package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/drive-transcriber/internal/api/storage"
	"github.com/cuongbtq/drive-transcriber/internal/notify"
	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

// JobReader is the read side of the job table
type JobReader interface {
	GetJobByFileID(ctx context.Context, fileID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, error)
}

// Scanner starts an out-of-schedule cycle. Trigger reports false when a
// cycle is already running.
type Scanner interface {
	Trigger() bool
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	ServiceName    string
	Logger         *slog.Logger
	Jobs           JobReader
	Database       HealthChecker
	Scanner        Scanner
	Hub            *notify.Hub
	AllowedOrigins []string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger *slog.Logger
	jobs   JobReader
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
	}
}
