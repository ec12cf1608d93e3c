package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/config"
	"github.com/opsdesk/sla-service/internal/events"
)

// NotificationService logs SLA events and forwards them to the configured webhook.
type NotificationService struct {
	logger  *zap.Logger
	cfg     config.NotificationConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.WebhookTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxFailures := uint32(5)
	if cfg.BreakerMaxFailures > 0 {
		maxFailures = uint32(cfg.BreakerMaxFailures)
	}
	openFor := time.Duration(cfg.BreakerOpenSeconds) * time.Second
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sla-webhook",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("webhook breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &NotificationService{
		logger:  logger,
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// Notify logs the event and posts it to the webhook. sla_started is only
// logged. Delivery problems are logged and never returned. The API host calls
// it from worker.StartNotificationWorker.
func (n *NotificationService) Notify(ctx context.Context, event events.Event) error {
	n.logger.Info("sla event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	if event.Type == events.EventSLAStarted {
		return nil
	}
	n.sendWebhook(ctx, event)
	return nil
}

// sendWebhook never fails the publisher; delivery problems are only logged.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.post(ctx, event)
	})
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("url", n.cfg.WebhookURL),
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func (n *NotificationService) post(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
