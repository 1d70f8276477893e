package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cuongbtq/drive-transcriber/internal/metrics"
	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/google/uuid"
)

const defaultBufferSize = 16

// Subscription is one listener attached to the Hub
type Subscription struct {
	ID     string
	Events <-chan Event

	hub *Hub
}

// Close detaches the subscription and closes its channel
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.ID)
}

// Hub broadcasts job events to every current subscriber. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
	closed      bool
	logger      *slog.Logger
}

// NewHub creates a new Hub
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		subscribers: make(map[string]chan Event),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe attaches a new listener. The first event it receives is a
// connected greeting.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, h.bufferSize)
	sub := &Subscription{ID: uuid.NewString(), Events: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return sub
	}

	ch <- connectedEvent()
	h.subscribers[sub.ID] = ch
	metrics.UpdateSubscribersMetric(len(h.subscribers))

	h.logger.Info("Client connected",
		slog.String("subscriber_id", sub.ID),
		slog.Int("subscribers", len(h.subscribers)),
	)

	return sub
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(ch)
	metrics.UpdateSubscribersMetric(len(h.subscribers))

	h.logger.Info("Client disconnected",
		slog.String("subscriber_id", id),
	)
}

// Publish delivers event to every subscriber and returns how many received it
func (h *Hub) Publish(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.subscribers {
		select {
		case ch <- event:
			delivered++
		default:
			metrics.IncreaseNotificationsDroppedMetric()
			h.logger.Warn("Subscriber buffer full, dropping event",
				slog.String("subscriber_id", id),
				slog.String("event", string(event.Type)),
			)
		}
	}
	return delivered
}

// OnPending broadcasts a new_pending_job event to every subscriber
func (h *Hub) OnPending(ctx context.Context, job *domain.Job) {
	h.Publish(newJobEvent(EventPendingJob, job))
}

// OnCompleted broadcasts a job_completed event to every subscriber
func (h *Hub) OnCompleted(ctx context.Context, job *domain.Job) {
	h.Publish(newJobEvent(EventJobCompleted, job))
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber; later subscriptions are closed immediately
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	metrics.UpdateSubscribersMetric(0)
}
