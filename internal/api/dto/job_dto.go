package dto

import (
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

type ListJobsRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending completed"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID         string  `json:"id"`
	FileID     string  `json:"file_id"`
	FileName   string  `json:"file_name"`
	Status     string  `json:"status"`
	Transcript *string `json:"transcript,omitempty"`
	ArchivedAt string  `json:"archived_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// ScanResponse is returned by the manual scan trigger
type ScanResponse struct {
	Status string `json:"status"`
}

// NewJobDTO converts a stored job to its response shape
func NewJobDTO(job domain.Job) JobDTO {
	out := JobDTO{
		ID:         job.ID,
		FileID:     job.FileID,
		FileName:   job.FileName,
		Status:     job.Status,
		Transcript: job.Transcript,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.Format(time.RFC3339),
	}
	if job.ArchivedAt != nil {
		out.ArchivedAt = job.ArchivedAt.Format(time.RFC3339)
	}
	return out
}
