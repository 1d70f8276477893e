package domain

import "time"

// Job is the persisted record tracking one file's transcription lifecycle
type Job struct {
	ID         string     `db:"id" json:"id"`
	FileID     string     `db:"file_id" json:"file_id"`
	FileName   string     `db:"file_name" json:"file_name"`
	Status     string     `db:"status" json:"status"`
	Transcript *string    `db:"transcript" json:"transcript,omitempty"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// IsCompleted reports whether the transcript has been stored
func (j *Job) IsCompleted() bool {
	return j.Status == JobStatusCompleted
}

// IsArchived reports whether the file has been moved to the completed folder
func (j *Job) IsArchived() bool {
	return j.ArchivedAt != nil
}
