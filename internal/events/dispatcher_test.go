package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventSLAStarted, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventSLAStarted, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventSLAStatusChanged, func(_ context.Context, e Event) error {
		got = append(got, "status:"+e.TicketID)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSLAStarted, "T-1", nil, time.Now(), nil)))
	assert.Equal(t, []string{"first:T-1", "second:T-1"}, got)
}

func TestDispatcherKeepsGoingAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	called := false
	d.Subscribe(EventSLAEscalationReached, func(context.Context, Event) error { return boom })
	d.Subscribe(EventSLAEscalationReached, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventSLAEscalationReached, "T-2", nil, time.Now(), nil))
	assert.ErrorIs(t, err, boom)
	assert.True(t, called)
}

func TestNewEventAssignsUniqueIDs(t *testing.T) {
	now := time.Now()
	a := NewEvent(EventSLAStarted, "T-1", nil, now, nil)
	b := NewEvent(EventSLAStarted, "T-1", nil, now, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, now, a.Timestamp)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()
	called := false
	d.Subscribe(EventSLACustomerActionDue, func(context.Context, Event) error { panic("nil payload") })
	d.Subscribe(EventSLACustomerActionDue, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventSLACustomerActionDue, "T-3", nil, time.Now(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil payload")
	assert.True(t, called)
}
