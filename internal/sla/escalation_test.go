package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/sla-service/internal/domain"
)

func ladder() []domain.EscalationLevel {
	return []domain.EscalationLevel{
		{Index: 1, MinutesBeforeEscalation: 30, NotifyTargets: []domain.Role{domain.RoleN1}},
		{Index: 2, MinutesBeforeEscalation: 60, NotifyTargets: []domain.Role{domain.RoleN2}},
		{Index: 3, MinutesBeforeEscalation: 90, NotifyTargets: []domain.Role{domain.RoleManager}},
	}
}

func TestLevelAt(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{29 * time.Minute, 0},
		{30 * time.Minute, 1},
		{45 * time.Minute, 1},
		{60 * time.Minute, 2},
		{89*time.Minute + 59*time.Second, 2},
		{10 * time.Hour, 3},
	}
	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			got := LevelAt(ladder(), tt.elapsed)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Index)
		})
	}
}

func TestLevelAtSortsThresholds(t *testing.T) {
	levels := ladder()
	levels[0], levels[2] = levels[2], levels[0]

	got := LevelAt(levels, 45*time.Minute)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, 90, levels[0].MinutesBeforeEscalation, "input must not be reordered")
}

func TestCurrentLevelExcludesPausedTime(t *testing.T) {
	e := newTestEngine(t)

	t.Run("plain", func(t *testing.T) {
		inst := newTimedInstance(t)
		level, err := e.CurrentLevel(inst, at(t, "2024-03-04 10:45"))
		require.NoError(t, err)
		require.NotNil(t, level)
		assert.Equal(t, 1, level.Index)
	})

	t.Run("after a pause", func(t *testing.T) {
		inst := newTimedInstance(t)
		require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 10:10")))
		require.NoError(t, Resume(allDay, inst, at(t, "2024-03-04 10:20")))

		level, err := e.CurrentLevel(inst, at(t, "2024-03-04 11:05"))
		require.NoError(t, err)
		require.NotNil(t, level)
		assert.Equal(t, 1, level.Index)

		level, err = e.CurrentLevel(inst, at(t, "2024-03-04 11:10"))
		require.NoError(t, err)
		require.NotNil(t, level)
		assert.Equal(t, 2, level.Index)
	})

	t.Run("while paused", func(t *testing.T) {
		inst := newTimedInstance(t)
		require.NoError(t, Pause(allDay, inst, at(t, "2024-03-04 10:40")))

		level, err := e.CurrentLevel(inst, at(t, "2024-03-04 13:00"))
		require.NoError(t, err)
		require.NotNil(t, level)
		assert.Equal(t, 1, level.Index)
	})

	t.Run("before the first threshold", func(t *testing.T) {
		inst := newTimedInstance(t)
		level, err := e.CurrentLevel(inst, at(t, "2024-03-04 10:29"))
		require.NoError(t, err)
		assert.Nil(t, level)
	})
}

func TestElapsedChargeableOnBusinessHours(t *testing.T) {
	e := newTestEngine(t)
	inst := &domain.SLAInstance{
		TicketID:     "T-8x5",
		ServiceLevel: domain.ServiceLevelPremium,
		Priority:     domain.PriorityLow,
		ServiceHours: domain.ServiceHours8x5,
		CreatedAt:    at(t, "2024-03-08 17:00"),
	}

	elapsed, err := e.ElapsedChargeable(inst, at(t, "2024-03-11 09:00"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, elapsed)

	resolved := at(t, "2024-03-11 08:30")
	inst.ResolvedAt = &resolved
	elapsed, err = e.ElapsedChargeable(inst, at(t, "2024-03-12 09:00"))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, elapsed)
}

func TestElapsedChargeableAfterOvernightPause(t *testing.T) {
	e := newTestEngine(t)
	inst := &domain.SLAInstance{
		TicketID:     "T-12x7",
		ServiceLevel: domain.ServiceLevelPremium,
		Priority:     domain.PriorityHigh,
		ServiceHours: domain.ServiceHours12x7,
		CreatedAt:    at(t, "2024-03-09 08:00"),
	}
	require.NoError(t, e.Pause(inst, at(t, "2024-03-09 19:00")))
	require.NoError(t, e.Resume(inst, at(t, "2024-03-10 09:00")))
	assert.Equal(t, 2*time.Hour, inst.PausedChargeable)

	// Saturday 12h plus Sunday 2h, minus the two paused business hours.
	elapsed, err := e.ElapsedChargeable(inst, at(t, "2024-03-10 10:00"))
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, elapsed)

	level, err := e.CurrentLevel(inst, at(t, "2024-03-10 10:00"))
	require.NoError(t, err)
	require.NotNil(t, level)
	assert.Equal(t, 1, level.Index)
}

func TestCurrentLevelAfterWeekendPause(t *testing.T) {
	e := newTestEngine(t)
	inst := weekendInstance(t, e)
	inst.Priority = domain.PriorityMedium

	require.NoError(t, e.Pause(inst, at(t, "2024-03-08 17:00")))
	require.NoError(t, e.Resume(inst, at(t, "2024-03-11 09:00")))

	// 14 business hours minus 2 paused is past the 8 hour level.
	level, err := e.CurrentLevel(inst, at(t, "2024-03-11 12:00"))
	require.NoError(t, err)
	require.NotNil(t, level)
	assert.Equal(t, 1, level.Index)
}

func TestAdvancePercentageRulesWithoutLadder(t *testing.T) {
	e := newTestEngine(t)
	inst := weekendInstance(t, e)

	view, err := e.CurrentEscalation(inst, at(t, "2024-03-12 18:00"))
	require.NoError(t, err)
	assert.Nil(t, view.Level)
	assert.Nil(t, view.InternalRule)
	assert.True(t, Advance(inst, view).Empty())

	view, err = e.CurrentEscalation(inst, at(t, "2024-03-13 10:00"))
	require.NoError(t, err)
	assert.Equal(t, 50, view.ElapsedPercent)
	tr := Advance(inst, view)
	require.NotNil(t, tr.InternalRule)
	assert.Nil(t, tr.Level)
	assert.Equal(t, domain.RoleN2, tr.InternalRule.TargetLevel)
	assert.Equal(t, 50, inst.LastInternalRulePercent)
	assert.True(t, Advance(inst, view).Empty(), "same rule must not fire twice")

	view, err = e.CurrentEscalation(inst, at(t, "2024-03-15 10:00"))
	require.NoError(t, err)
	tr = Advance(inst, view)
	require.NotNil(t, tr.InternalRule)
	assert.Equal(t, domain.RoleManager, tr.InternalRule.TargetLevel)
	assert.Equal(t, 80, inst.LastInternalRulePercent)
}

func TestCurrentEscalationAndAdvance(t *testing.T) {
	e := newTestEngine(t)
	inst := newTimedInstance(t)
	inst.ResolutionDeadline = at(t, "2024-03-04 12:00")

	view, err := e.CurrentEscalation(inst, at(t, "2024-03-04 10:45"))
	require.NoError(t, err)
	assert.Equal(t, 45, view.ElapsedMinutes)
	require.NotNil(t, view.Level)
	assert.Equal(t, 1, view.Level.Index)
	require.NotNil(t, view.NextLevel)
	assert.Equal(t, 2, view.NextLevel.Index)
	assert.Equal(t, 15, view.MinutesToNextLevel)
	assert.Equal(t, 37, view.ElapsedPercent)
	assert.Nil(t, view.InternalRule)

	tr := Advance(inst, view)
	require.NotNil(t, tr.Level)
	assert.Equal(t, 1, tr.Level.Index)
	assert.Equal(t, 1, inst.LastEscalationLevel)
	assert.True(t, Advance(inst, view).Empty(), "same level must not fire twice")

	view, err = e.CurrentEscalation(inst, at(t, "2024-03-04 11:30"))
	require.NoError(t, err)
	assert.Equal(t, 75, view.ElapsedPercent)
	require.NotNil(t, view.InternalRule)
	assert.Equal(t, domain.RoleN3, view.InternalRule.TargetLevel)
	require.NotNil(t, view.Level)
	assert.Equal(t, 3, view.Level.Index)
	assert.Nil(t, view.NextLevel)

	tr = Advance(inst, view)
	require.NotNil(t, tr.Level)
	assert.Equal(t, 3, inst.LastEscalationLevel)
}

func TestCustomerEscalation(t *testing.T) {
	e := newTestEngine(t)
	inst := newTimedInstance(t)
	since := at(t, "2024-03-04 10:00")
	inst.AwaitingCustomerSince = &since

	view, err := e.CurrentEscalation(inst, at(t, "2024-03-05 09:00"))
	require.NoError(t, err)
	assert.Zero(t, view.WaitingDays)
	assert.Nil(t, view.CustomerAction)

	view, err = e.CurrentEscalation(inst, at(t, "2024-03-07 11:00"))
	require.NoError(t, err)
	assert.Equal(t, 3, view.WaitingDays)
	require.NotNil(t, view.CustomerAction)
	assert.Equal(t, domain.CustomerActionCall, view.CustomerAction.Action)
	assert.Equal(t, 2, view.CustomerActionIndex)

	tr := Advance(inst, view)
	require.NotNil(t, tr.CustomerAction)
	assert.Equal(t, 2, inst.LastCustomerAction)
	assert.Nil(t, Advance(inst, view).CustomerAction)
}

func TestDueCustomerActionSkipsInactive(t *testing.T) {
	rules := []domain.CustomerEscalationRule{
		{WaitingDays: 3, Action: domain.CustomerActionCall, Active: false},
		{WaitingDays: 1, Action: domain.CustomerActionEmail, Active: true},
		{WaitingDays: 7, Action: domain.CustomerActionAutoClose, Active: true},
	}

	idx, rule := DueCustomerAction(rules, 4)
	require.NotNil(t, rule)
	assert.Equal(t, domain.CustomerActionEmail, rule.Action)
	assert.Equal(t, 1, idx)

	idx, rule = DueCustomerAction(rules, 7)
	require.NotNil(t, rule)
	assert.Equal(t, domain.CustomerActionAutoClose, rule.Action)
	assert.Equal(t, 3, idx)

	idx, rule = DueCustomerAction(rules, 0)
	assert.Nil(t, rule)
	assert.Zero(t, idx)
}

func TestDueInternalRule(t *testing.T) {
	rules := []domain.InternalEscalationRule{
		{SLAPercentage: 90, TargetLevel: domain.RoleManager, Active: true},
		{SLAPercentage: 50, TargetLevel: domain.RoleN2, Active: true},
		{SLAPercentage: 75, TargetLevel: domain.RoleN3, Active: false},
	}

	assert.Nil(t, DueInternalRule(rules, 49))
	got := DueInternalRule(rules, 80)
	require.NotNil(t, got)
	assert.Equal(t, domain.RoleN2, got.TargetLevel)
	got = DueInternalRule(rules, 120)
	require.NotNil(t, got)
	assert.Equal(t, domain.RoleManager, got.TargetLevel)
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "expired", FormatMinutes(0))
	assert.Equal(t, "expired", FormatMinutes(-3))
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "5h 20m", FormatMinutes(320))
	assert.Equal(t, "1h 0m", FormatMinutes(60))
	assert.Equal(t, "2d 3h", FormatMinutes(2*24*60+180))
}
