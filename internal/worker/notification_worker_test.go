package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/events"
)

type recordingNotifier struct {
	mu      sync.Mutex
	tickets []string
	started chan struct{}
	release chan struct{}
}

func (n *recordingNotifier) Notify(_ context.Context, event events.Event) error {
	if n.started != nil {
		n.started <- struct{}{}
	}
	if n.release != nil {
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tickets = append(n.tickets, event.TicketID)
	return nil
}

func (n *recordingNotifier) delivered() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.tickets...)
}

func TestNotificationWorkerDeliversInOrder(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &recordingNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartNotificationWorker(ctx, dispatcher, notifier, 8, zap.NewNop())

	for _, id := range []string{"T-1", "T-2", "T-3"} {
		require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSLAStatusChanged, id, nil, time.Now(), nil)))
	}
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSLAStarted, "T-4", nil, time.Now(), nil)))

	assert.Eventually(t, func() bool { return len(notifier.delivered()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"T-1", "T-2", "T-3", "T-4"}, notifier.delivered())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNotificationWorkerDropsWhenFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &recordingNotifier{started: make(chan struct{}, 4), release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartNotificationWorker(ctx, dispatcher, notifier, 1, nil)

	publish := func(id string) {
		require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSLAEscalationReached, id, nil, time.Now(), nil)))
	}

	publish("T-1")
	select {
	case <-notifier.started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up T-1")
	}
	publish("T-2") // fills the queue while T-1 is in flight
	publish("T-3") // dropped

	close(notifier.release)
	assert.Eventually(t, func() bool { return len(notifier.delivered()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []string{"T-1", "T-2"}, notifier.delivered())
}
