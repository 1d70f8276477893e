package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/google/uuid"
)

const (
	cloudEventsContentType = "application/cloudevents+json"
	eventTypePrefix        = "drive.transcriber.events."
	defaultEventSource     = "drive.transcriber.watcher"
)

// Publisher sends a message body to the broker
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// AMQPNotifier publishes job events as CloudEvents JSON envelopes
type AMQPNotifier struct {
	publisher Publisher
	source    string
	logger    *slog.Logger
}

// NewAMQPNotifier creates a new AMQPNotifier
func NewAMQPNotifier(publisher Publisher, source string, logger *slog.Logger) *AMQPNotifier {
	if source == "" {
		source = defaultEventSource
	}
	return &AMQPNotifier{
		publisher: publisher,
		source:    source,
		logger:    logger,
	}
}

// OnPending publishes a new_pending_job event
func (n *AMQPNotifier) OnPending(ctx context.Context, job *domain.Job) {
	n.publish(ctx, EventPendingJob, job)
}

// OnCompleted publishes a job_completed event
func (n *AMQPNotifier) OnCompleted(ctx context.Context, job *domain.Job) {
	n.publish(ctx, EventJobCompleted, job)
}

// publish is fire-and-forget; failures are logged only
func (n *AMQPNotifier) publish(ctx context.Context, eventType EventType, job *domain.Job) {
	body, err := n.encode(eventType, job)
	if err != nil {
		n.logger.Error("Failed to encode event",
			slog.String("event", string(eventType)),
			slog.Any("error", err),
		)
		return
	}

	if err := n.publisher.PublishWithRetry(ctx, body, cloudEventsContentType); err != nil {
		n.logger.Error("Failed to publish event",
			slog.String("event", string(eventType)),
			slog.String("file_id", job.FileID),
			slog.Any("error", err),
		)
	}
}

func (n *AMQPNotifier) encode(eventType EventType, job *domain.Job) ([]byte, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(n.source)
	e.SetType(eventTypePrefix + string(eventType))
	e.SetSubject(job.FileID)
	e.SetTime(time.Now().UTC())
	if err := e.SetData(cloudevents.ApplicationJSON, job); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}
