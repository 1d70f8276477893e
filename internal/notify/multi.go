package notify

import (
	"context"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

// Notifier mirrors the worker's notification port
type Notifier interface {
	OnPending(ctx context.Context, job *domain.Job)
	OnCompleted(ctx context.Context, job *domain.Job)
}

// Multi forwards every event to each notifier in order
type Multi []Notifier

// OnPending forwards the pending job to each notifier in order
func (m Multi) OnPending(ctx context.Context, job *domain.Job) {
	for _, n := range m {
		n.OnPending(ctx, job)
	}
}

// OnCompleted forwards the completed job to each notifier in order
func (m Multi) OnCompleted(ctx context.Context, job *domain.Job) {
	for _, n := range m {
		n.OnCompleted(ctx, job)
	}
}
