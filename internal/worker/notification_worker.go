package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/events"
)

const (
	defaultNotificationQueue = 256
	notificationDrainTimeout = 5 * time.Second
)

// Notifier delivers one SLA event.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// StartNotificationWorker subscribes to every SLA event and hands them to
// notifier on a single goroutine, off the publisher's path. Publishers never
// block: when the queue is full the event is dropped and logged. On shutdown
// the queued events are still delivered, bounded by a drain timeout.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notifier Notifier, queueSize int, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultNotificationQueue
	}
	queue := make(chan events.Event, queueSize)

	enqueue := func(_ context.Context, event events.Event) error {
		select {
		case queue <- event:
		default:
			logger.Warn("notification queue full; dropping event",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID))
		}
		return nil
	}
	for _, eventType := range events.SLAEventTypes {
		dispatcher.Subscribe(eventType, enqueue)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationDrainTimeout)
				drain(drainCtx, queue, notifier, logger)
				cancel()
				return
			case event := <-queue:
				deliver(ctx, notifier, event, logger)
			}
		}
	}()
	return done
}

func drain(ctx context.Context, queue <-chan events.Event, notifier Notifier, logger *zap.Logger) {
	for {
		select {
		case event := <-queue:
			deliver(ctx, notifier, event, logger)
		default:
			return
		}
	}
}

func deliver(ctx context.Context, notifier Notifier, event events.Event, logger *zap.Logger) {
	if err := notifier.Notify(ctx, event); err != nil {
		logger.Warn("notify",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
