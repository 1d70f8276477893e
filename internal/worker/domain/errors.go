package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when no job exists for a file id
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when creating a job for a file id that already has one
	ErrJobExists = errors.New("job already exists for file")

	// ErrJobAlreadyCompleted is returned when completing a job that is no longer pending
	ErrJobAlreadyCompleted = errors.New("job already completed")

	// ErrJobNotCompleted is returned when archiving a job that has no transcript yet
	ErrJobNotCompleted = errors.New("job not completed")

	// ErrFolderNotFound is returned by file stores when a folder lookup misses
	ErrFolderNotFound = errors.New("folder not found")

	// ErrMissingCredentials is returned when file store credentials are absent
	ErrMissingCredentials = errors.New("missing file store credentials")

	// ErrAuthenticationFailed is returned when the file store rejects the credentials
	ErrAuthenticationFailed = errors.New("file store authentication failed")

	// ErrNotAuthenticated is returned when a file store is used before Authenticate
	ErrNotAuthenticated = errors.New("file store not authenticated")

	// ErrTranscriptionFailed wraps every failure of the transcription capability
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Stage names the step of per-file processing that failed
type Stage string

const (
	StageJobStore   Stage = "job_store"
	StageTranscribe Stage = "transcribe"
	StageComplete   Stage = "complete"
	StageArchive    Stage = "archive"
	StageProcess    Stage = "process"
)

// FileError reports a per-file failure and the stage it happened in
type FileError struct {
	FileID string
	Stage  Stage
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed at %s: %v", e.FileID, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError creates a new FileError
func NewFileError(fileID string, stage Stage, err error) error {
	return &FileError{FileID: fileID, Stage: stage, Err: err}
}
