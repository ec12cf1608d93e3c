package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/sla-service/internal/domain"
)

var allDay = AlwaysOpen()

// newTimedInstance is created Monday 10:00 with a 30 minute response and a
// six hour resolution window.
func newTimedInstance(t *testing.T) *domain.SLAInstance {
	t.Helper()
	return &domain.SLAInstance{
		TicketID:              "T-100",
		ServiceLevel:          domain.ServiceLevelPlatinum,
		Priority:              domain.PriorityCritical,
		ServiceHours:          domain.ServiceHours24x7,
		CreatedAt:             at(t, "2024-03-04 10:00"),
		FirstResponseDeadline: at(t, "2024-03-04 10:30"),
		ResolutionDeadline:    at(t, "2024-03-04 16:00"),
		Status:                domain.SLAStatusNormal,
	}
}

func respondedInstance(t *testing.T) *domain.SLAInstance {
	t.Helper()
	inst := newTimedInstance(t)
	require.NoError(t, RecordFirstResponse(allDay, inst, at(t, "2024-03-04 10:05")))
	return inst
}

func TestEvaluatePending(t *testing.T) {
	inst := newTimedInstance(t)

	snap := Evaluate(allDay, inst, at(t, "2024-03-04 10:10"))
	assert.Equal(t, domain.SLAStatusNormal, snap.Status)
	assert.Equal(t, domain.ResponsePending, snap.ResponseStatus)
	assert.Equal(t, domain.ResolutionPending, snap.ResolutionStatus)
	assert.Equal(t, 20, snap.RemainingResponseMinutes)
	assert.Equal(t, 350, snap.RemainingResolutionMinutes)
	assert.Equal(t, 33, snap.ResponseProgress)
	assert.Equal(t, 2, snap.ResolutionProgress)
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		now  string
		want domain.SLAStatus
	}{
		{"2024-03-04 11:00", domain.SLAStatusNormal},
		{"2024-03-04 11:59", domain.SLAStatusNormal},
		{"2024-03-04 12:00", domain.SLAStatusWarning},
		{"2024-03-04 14:59", domain.SLAStatusWarning},
		{"2024-03-04 15:00", domain.SLAStatusCritical},
		{"2024-03-04 15:59", domain.SLAStatusCritical},
		{"2024-03-04 16:00", domain.SLAStatusViolated},
		{"2024-03-05 09:00", domain.SLAStatusViolated},
	}
	for _, tt := range tests {
		t.Run(tt.now, func(t *testing.T) {
			inst := respondedInstance(t)
			assert.Equal(t, tt.want, Evaluate(allDay, inst, at(t, tt.now)).Status)
		})
	}
}

func TestEvaluateResponseOverdueViolates(t *testing.T) {
	inst := newTimedInstance(t)

	snap := Evaluate(allDay, inst, at(t, "2024-03-04 10:45"))
	assert.Equal(t, domain.ResponseOverdue, snap.ResponseStatus)
	assert.Equal(t, domain.ResolutionPending, snap.ResolutionStatus)
	assert.Equal(t, domain.SLAStatusViolated, snap.Status)
	assert.True(t, snap.Violated)
	assert.False(t, inst.Violated, "Evaluate must not mutate")
}

func TestEvaluateWithoutDeadlinesDefaultsToNormal(t *testing.T) {
	inst := &domain.SLAInstance{TicketID: "T-0", CreatedAt: at(t, "2024-03-04 10:00")}
	assert.Equal(t, domain.SLAStatusNormal, Evaluate(allDay, inst, at(t, "2024-03-04 11:00")).Status)
}

func TestViolationIsSticky(t *testing.T) {
	inst := respondedInstance(t)

	snap, changed := Refresh(allDay, inst, at(t, "2024-03-04 16:30"))
	assert.True(t, changed)
	assert.Equal(t, domain.SLAStatusViolated, snap.Status)
	assert.True(t, inst.Violated)

	require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 16:40")))
	assert.True(t, inst.Violated)
	require.NoError(t, Resume(allDay, inst, at(t, "2024-03-04 17:00")))
	assert.True(t, inst.Violated)

	require.NoError(t, RecordResolution(allDay, inst, at(t, "2024-03-04 18:00")))
	assert.Equal(t, domain.SLAStatusCompleted, inst.Status)
	assert.True(t, inst.Violated)

	snap = Evaluate(allDay, inst, at(t, "2024-03-06 18:00"))
	assert.Equal(t, domain.SLAStatusCompleted, snap.Status)
	assert.Equal(t, domain.ResolutionResolved, snap.ResolutionStatus)
	assert.True(t, snap.Violated)
}

func TestLateResolutionMarksViolated(t *testing.T) {
	inst := respondedInstance(t)

	require.NoError(t, RecordResolution(allDay, inst, at(t, "2024-03-04 16:01")))
	assert.True(t, inst.Violated)
	assert.Equal(t, domain.SLAStatusCompleted, inst.Status)
}

func TestLateFirstResponseMarksViolated(t *testing.T) {
	inst := newTimedInstance(t)

	require.NoError(t, RecordFirstResponse(allDay, inst, at(t, "2024-03-04 10:45")))
	assert.True(t, inst.Violated)
	assert.Equal(t, domain.SLAStatusNormal, inst.Status)
}

func TestPauseConservesRemainingTime(t *testing.T) {
	inst := respondedInstance(t)

	before := Evaluate(allDay, inst, at(t, "2024-03-04 12:00")).RemainingResolutionMinutes
	require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 12:00")))

	during := Evaluate(allDay, inst, at(t, "2024-03-04 13:30"))
	assert.Equal(t, domain.SLAStatusPaused, during.Status)
	assert.Equal(t, before, during.RemainingResolutionMinutes)

	require.NoError(t, Resume(allDay, inst, at(t, "2024-03-04 14:00")))
	assert.Equal(t, before, Evaluate(allDay, inst, at(t, "2024-03-04 14:00")).RemainingResolutionMinutes)
	assert.Equal(t, 120, inst.TotalPausedMinutes())
	assert.Equal(t, at(t, "2024-03-04 18:00"), Evaluate(allDay, inst, at(t, "2024-03-04 14:00")).ResolutionDeadline)
}

func TestRepeatedPausesAccumulate(t *testing.T) {
	inst := respondedInstance(t)
	windows := [][2]string{
		{"2024-03-04 11:00", "2024-03-04 11:20:30"},
		{"2024-03-04 12:00", "2024-03-04 12:00"},
		{"2024-03-04 13:10", "2024-03-04 14:00"},
	}

	for _, w := range windows {
		pausedAt := parseSeconds(t, w[0])
		resumedAt := parseSeconds(t, w[1])
		before := Evaluate(allDay, inst, pausedAt).RemainingResolutionMinutes
		require.NoError(t, Pause(allDay, inst, pausedAt))
		require.NoError(t, Resume(allDay, inst, resumedAt))
		assert.Equal(t, before, Evaluate(allDay, inst, resumedAt).RemainingResolutionMinutes, "window %v", w)
	}
	assert.Equal(t, 20*time.Minute+30*time.Second+50*time.Minute, inst.TotalPaused)
	assert.Equal(t, 70, inst.TotalPausedMinutes())
}

func parseSeconds(t *testing.T, s string) time.Time {
	t.Helper()
	if len(s) == len("2006-01-02 15:04") {
		return at(t, s)
	}
	v, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return v
}

func TestPauseResumeMisuse(t *testing.T) {
	t.Run("already paused", func(t *testing.T) {
		inst := respondedInstance(t)
		require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 11:00")))
		err := Pause(allDay, inst, at(t, "2024-03-04 11:30"))
		assert.ErrorIs(t, err, ErrAlreadyPaused)
		assert.Equal(t, at(t, "2024-03-04 11:00"), *inst.PausedAt)
	})

	t.Run("not paused", func(t *testing.T) {
		inst := respondedInstance(t)
		assert.ErrorIs(t, Resume(allDay, inst, at(t, "2024-03-04 11:00")), ErrNotPaused)
		assert.Zero(t, inst.TotalPaused)
	})

	t.Run("resume before pause", func(t *testing.T) {
		inst := respondedInstance(t)
		require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 11:00")))
		assert.ErrorIs(t, Resume(allDay, inst, at(t, "2024-03-04 10:30")), ErrInvalidInput)
		assert.True(t, inst.IsPaused)
		assert.Zero(t, inst.TotalPaused)
	})

	t.Run("pause after resolution", func(t *testing.T) {
		inst := respondedInstance(t)
		require.NoError(t, RecordResolution(allDay, inst, at(t, "2024-03-04 11:00")))
		assert.ErrorIs(t, Pause(allDay, inst, at(t, "2024-03-04 11:30")), ErrInvalidInput)
		assert.False(t, inst.IsPaused)
	})
}

func TestRecordResolutionWhilePaused(t *testing.T) {
	inst := newTimedInstance(t)
	require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 10:10")))

	require.NoError(t, RecordResolution(allDay, inst, at(t, "2024-03-04 11:10")))
	assert.False(t, inst.IsPaused)
	assert.Nil(t, inst.PausedAt)
	assert.Equal(t, time.Hour, inst.TotalPaused)
	require.NotNil(t, inst.FirstResponseAt)
	assert.Equal(t, at(t, "2024-03-04 11:10"), *inst.FirstResponseAt)
	// The response window was pushed back by the pause, so 11:10 is within 10:30 + 1h.
	assert.False(t, inst.Violated)
	assert.Equal(t, domain.SLAStatusCompleted, inst.Status)
}

func TestRecordTwice(t *testing.T) {
	inst := respondedInstance(t)
	assert.ErrorIs(t, RecordFirstResponse(allDay, inst, at(t, "2024-03-04 10:20")), ErrInvalidInput)

	require.NoError(t, RecordResolution(allDay, inst, at(t, "2024-03-04 11:00")))
	assert.ErrorIs(t, RecordResolution(allDay, inst, at(t, "2024-03-04 11:30")), ErrInvalidInput)
	assert.Equal(t, at(t, "2024-03-04 11:00"), *inst.ResolvedAt)
}

func TestRecordBeforeCreation(t *testing.T) {
	inst := newTimedInstance(t)
	assert.ErrorIs(t, RecordFirstResponse(allDay, inst, at(t, "2024-03-04 09:00")), ErrInvalidInput)
	assert.ErrorIs(t, RecordResolution(allDay, inst, at(t, "2024-03-04 09:00")), ErrInvalidInput)
	assert.Nil(t, inst.FirstResponseAt)
	assert.Nil(t, inst.ResolvedAt)
}

// weekendInstance is a premium low 8x5 SLA opened Friday 08:00: 480 minutes to
// respond and 64 business hours to resolve.
func weekendInstance(t *testing.T, e *Engine) *domain.SLAInstance {
	t.Helper()
	req := DeadlineRequest{
		CreatedAt:    at(t, "2024-03-08 08:00"),
		Technical:    domain.TechnicalWarning,
		Business:     3,
		ServiceLevel: domain.ServiceLevelPremium,
	}
	d, err := e.ComputeDeadlines(req)
	require.NoError(t, err)
	require.Equal(t, domain.ServiceHours8x5, d.ServiceHours)
	require.Equal(t, at(t, "2024-03-18 12:00"), d.ResolutionDeadline)
	return NewInstance("T-8x5", req, d)
}

func TestPauseOverWeekendChargesBusinessHoursOnly(t *testing.T) {
	e := newTestEngine(t)
	inst := weekendInstance(t, e)
	require.NoError(t, e.RecordFirstResponse(inst, at(t, "2024-03-08 09:00")))

	before, err := e.Evaluate(inst, at(t, "2024-03-08 17:00"))
	require.NoError(t, err)
	assert.Equal(t, 55*60, before.RemainingResolutionMinutes)

	require.NoError(t, e.Pause(inst, at(t, "2024-03-08 17:00")))
	require.NoError(t, e.Resume(inst, at(t, "2024-03-11 09:00")))

	assert.Equal(t, 64*time.Hour, inst.TotalPaused)
	assert.Equal(t, 2*time.Hour, inst.PausedChargeable)

	after, err := e.Evaluate(inst, at(t, "2024-03-11 09:00"))
	require.NoError(t, err)
	assert.Equal(t, at(t, "2024-03-18 14:00"), after.ResolutionDeadline)
	assert.Equal(t, before.RemainingResolutionMinutes, after.RemainingResolutionMinutes)
	assert.Equal(t, domain.SLAStatusNormal, after.Status)

	elapsed, err := e.ElapsedChargeable(inst, at(t, "2024-03-11 12:00"))
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, elapsed)

	require.NoError(t, e.RecordResolution(inst, at(t, "2024-03-18 13:30")))
	assert.False(t, inst.Violated, "13:30 is inside the pushed deadline")
}

func TestPauseOutsideBusinessHoursKeepsDeadline(t *testing.T) {
	e := newTestEngine(t)
	inst := weekendInstance(t, e)

	require.NoError(t, e.Pause(inst, at(t, "2024-03-08 18:30")))
	require.NoError(t, e.Resume(inst, at(t, "2024-03-11 07:30")))

	assert.Zero(t, inst.PausedChargeable)
	snap, err := e.Evaluate(inst, at(t, "2024-03-11 08:00"))
	require.NoError(t, err)
	assert.Equal(t, at(t, "2024-03-18 12:00"), snap.ResolutionDeadline)
	assert.Equal(t, at(t, "2024-03-08 16:00"), snap.FirstResponseDeadline)
}

func TestFirstResponseWhilePausedUsesChargeablePause(t *testing.T) {
	e := newTestEngine(t)
	inst := weekendInstance(t, e)

	// Paused since Friday 15:00, 5h30m of business time has accrued by Monday
	// 10:30, which moves the Friday 16:00 deadline to Monday 11:30.
	require.NoError(t, e.Pause(inst, at(t, "2024-03-08 15:00")))
	require.NoError(t, e.RecordFirstResponse(inst, at(t, "2024-03-11 10:30")))
	assert.False(t, inst.Violated)
}

func TestEngineRejectsUnknownServiceHours(t *testing.T) {
	e := newTestEngine(t)
	inst := newTimedInstance(t)
	inst.ServiceHours = domain.ServiceHours("9x9")

	_, err := e.Evaluate(inst, at(t, "2024-03-04 11:00"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, e.Pause(inst, at(t, "2024-03-04 11:00")), ErrInvalidInput)
	assert.False(t, inst.IsPaused)
}
