package domain

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
)

const (
	// DefaultMimeType is the media type watched when none is configured
	DefaultMimeType = "video/mp4"

	// DefaultCompletedFolderName is the archive folder created under the source folder
	DefaultCompletedFolderName = "completed"
)
