package worker

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=worker

import (
	"context"
	"io"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

// FileStore is the remote hierarchical store being watched
type FileStore interface {
	// Authenticate verifies the credentials once; failures are fatal for the caller
	Authenticate(ctx context.Context) error
	ListEligible(ctx context.Context, filter domain.FileFilter) ([]domain.RemoteFile, error)
	// FindFolder returns domain.ErrFolderNotFound when no folder named name exists under parentID
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	GetParents(ctx context.Context, fileID string) ([]string, error)
	SetParents(ctx context.Context, fileID string, add, remove []string) error
	Download(ctx context.Context, fileID string) (io.ReadCloser, string, error)
}

// JobStore persists transcription jobs keyed by file id
type JobStore interface {
	FindByFileID(ctx context.Context, fileID string) (*domain.Job, error)
	Create(ctx context.Context, fileID, fileName string) (*domain.Job, error)
	MarkCompleted(ctx context.Context, fileID, transcript string) (*domain.Job, error)
	MarkArchived(ctx context.Context, fileID string) (*domain.Job, error)
}

// Transcriber turns one remote file into transcript text
type Transcriber interface {
	Transcribe(ctx context.Context, file domain.RemoteFile) (string, error)
}

// Notifier receives job lifecycle events. Delivery is fire-and-forget.
type Notifier interface {
	OnPending(ctx context.Context, job *domain.Job)
	OnCompleted(ctx context.Context, job *domain.Job)
}

// Archiver owns the completed destination and moves processed files into it
type Archiver interface {
	EnsureDestination(ctx context.Context, parentID string) (string, error)
	Move(ctx context.Context, fileID, destinationID string) error
}
