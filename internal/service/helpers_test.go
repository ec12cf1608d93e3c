package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/events"
	"github.com/opsdesk/sla-service/internal/lock"
	"github.com/opsdesk/sla-service/internal/repository"
	"github.com/opsdesk/sla-service/internal/sla"
)

func historyTypes(repo repository.SLAHistoryRepository, ticketID string) []domain.SLAChangeType {
	entries, _ := repo.ListByTicket(context.Background(), ticketID)
	out := make([]domain.SLAChangeType, 0, len(entries))
	for _, h := range entries {
		out = append(out, h.ChangeType)
	}
	return out
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	sla        *SLAService
	escalation *EscalationService
	instances  *repository.MemorySLAInstanceRepository
	history    *repository.MemorySLAHistoryRepository
	dispatcher events.Dispatcher
	recorder   *eventRecorder
	clock      *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine, err := sla.NewEngine(sla.DefaultPolicy())
	require.NoError(t, err)

	h := &harness{
		instances: repository.NewMemorySLAInstanceRepository(),
		history:   repository.NewMemorySLAHistoryRepository(),
		recorder:  &eventRecorder{},
		clock:     &testClock{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.SLAEventTypes {
		dispatcher.Subscribe(et, h.recorder.handle)
	}
	h.dispatcher = dispatcher

	deps := SLADependencies{
		Engine:       engine,
		InstanceRepo: h.instances,
		HistoryRepo:  h.history,
		Dispatcher:   dispatcher,
		Locker:       lock.NewKeyedMutex(),
		Clock:        h.clock.Now,
	}
	h.sla = NewSLAService(deps)
	h.escalation = NewEscalationService(deps)
	return h
}

// ts parses a UTC wall-clock instant; 2024-03-04 is a Monday.
func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return v
}

func ptr[T any](v T) *T {
	return &v
}
