package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/service"
)

// EscalationRunner is the part of the escalation service the worker drives.
type EscalationRunner interface {
	Run(ctx context.Context, now time.Time) (service.EscalationReport, error)
}

// StartEscalationWorker runs the escalation sweep every interval until ctx is
// done. The returned channel closes once the loop has exited.
func StartEscalationWorker(ctx context.Context, runner EscalationRunner, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sweep(ctx, runner, logger)
		for {
			select {
			case <-ctx.Done():
				logger.Info("escalation worker stopped")
				return
			case <-ticker.C:
				sweep(ctx, runner, logger)
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, runner EscalationRunner, logger *zap.Logger) {
	start := time.Now()
	report, err := runner.Run(ctx, start)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("escalation sweep failed", zap.Error(err))
		}
		return
	}
	logger.Debug("escalation sweep",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("escalated", report.Escalated),
		zap.Int("customer_actions", report.CustomerActions),
		zap.Int("status_changes", report.StatusChanges),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(start)))
}
