package notify

import (
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/google/uuid"
)

// EventType names a notification
type EventType string

const (
	EventConnected    EventType = "connected"
	EventPendingJob   EventType = "new_pending_job"
	EventJobCompleted EventType = "job_completed"
)

// Event is what subscribers receive
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Job       *domain.Job `json:"job,omitempty"`
	Status    string      `json:"status,omitempty"`
	EmittedAt time.Time   `json:"emitted_at"`
}

func newJobEvent(eventType EventType, job *domain.Job) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Job:       job,
		EmittedAt: time.Now().UTC(),
	}
}

func connectedEvent() Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventConnected,
		Status:    "ok",
		EmittedAt: time.Now().UTC(),
	}
}
