package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-sub.Events:
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestHub_SubscribeSendsGreeting(t *testing.T) {
	hub := NewHub(4, discardLogger())
	sub := hub.Subscribe()
	defer sub.Close()

	e := receive(t, sub)
	assert.Equal(t, EventConnected, e.Type)
	assert.Equal(t, "ok", e.Status)
	assert.Equal(t, 1, hub.Count())
}

func TestHub_BroadcastsToAllSubscribers(t *testing.T) {
	hub := NewHub(4, discardLogger())
	subs := []*Subscription{hub.Subscribe(), hub.Subscribe(), hub.Subscribe()}
	for _, sub := range subs {
		receive(t, sub)
	}

	job := &domain.Job{ID: "j1", FileID: "f1", Status: domain.JobStatusPending}
	hub.OnPending(context.Background(), job)
	job2 := &domain.Job{ID: "j1", FileID: "f1", Status: domain.JobStatusCompleted}
	hub.OnCompleted(context.Background(), job2)

	for _, sub := range subs {
		e := receive(t, sub)
		assert.Equal(t, EventPendingJob, e.Type)
		assert.Equal(t, "f1", e.Job.FileID)
		assert.NotEmpty(t, e.ID)

		e = receive(t, sub)
		assert.Equal(t, EventJobCompleted, e.Type)
		assert.Equal(t, domain.JobStatusCompleted, e.Job.Status)
	}
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub(4, discardLogger())
	assert.Equal(t, 0, hub.Publish(newJobEvent(EventPendingJob, &domain.Job{FileID: "f1"})))

	sub := hub.Subscribe()
	defer sub.Close()

	assert.Equal(t, EventConnected, receive(t, sub).Type)
	select {
	case e := <-sub.Events:
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(2, discardLogger())
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	receive(t, fast)

	job := &domain.Job{FileID: "f1"}
	// slow still holds the greeting, so only one more event fits
	assert.Equal(t, 2, hub.Publish(newJobEvent(EventPendingJob, job)))
	receive(t, fast)
	assert.Equal(t, 1, hub.Publish(newJobEvent(EventJobCompleted, job)))

	assert.Equal(t, EventConnected, receive(t, slow).Type)
	assert.Equal(t, EventPendingJob, receive(t, slow).Type)
	assert.Equal(t, EventJobCompleted, receive(t, fast).Type)
}

func TestHub_CloseSubscription(t *testing.T) {
	hub := NewHub(4, discardLogger())
	sub := hub.Subscribe()
	receive(t, sub)

	sub.Close()
	sub.Close()

	_, ok := <-sub.Events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count())
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4, discardLogger())
	sub := hub.Subscribe()
	receive(t, sub)

	hub.Close()
	_, ok := <-sub.Events
	assert.False(t, ok)

	late := hub.Subscribe()
	_, ok = <-late.Events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count())
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub(8, discardLogger())
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe()
			for j := 0; j < 3; j++ {
				select {
				case <-sub.Events:
				case <-time.After(10 * time.Millisecond):
				}
			}
			sub.Close()
		}()
		go func() {
			defer wg.Done()
			hub.OnPending(context.Background(), &domain.Job{FileID: "f"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Count())
}
