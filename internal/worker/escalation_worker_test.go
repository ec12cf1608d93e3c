package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/service"
)

type countingRunner struct {
	calls int32
	err   error
}

func (r *countingRunner) Run(context.Context, time.Time) (service.EscalationReport, error) {
	atomic.AddInt32(&r.calls, 1)
	return service.EscalationReport{Evaluated: 1}, r.err
}

func TestEscalationWorkerRunsUntilCancelled(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEscalationWorker(ctx, runner, 5*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	stopped := atomic.LoadInt32(&runner.calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runner.calls))
}

func TestEscalationWorkerSurvivesFailures(t *testing.T) {
	runner := &countingRunner{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEscalationWorker(ctx, runner, 5*time.Millisecond, nil)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 2 }, time.Second, time.Millisecond)
}
