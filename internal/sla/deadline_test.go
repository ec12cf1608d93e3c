package sla

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/sla-service/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)
	return e
}

func TestComputeDeadlinesPlatinumCritical(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.ComputeDeadlines(DeadlineRequest{
		CreatedAt:         at(t, "2024-03-09 10:00"),
		Technical:         domain.TechnicalDisaster,
		Business:          0,
		ServiceLevel:      domain.ServiceLevelPlatinum,
		AdjustmentEnabled: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityCritical, d.Priority)
	assert.Equal(t, domain.ServiceHours24x7, d.ServiceHours)
	assert.Equal(t, 15, d.BaseResponseMinutes)
	assert.Equal(t, 8, d.ResponseMinutes)
	assert.Equal(t, 60, d.ResolutionMinutes)
	assert.True(t, d.AdjustmentFactor.Equal(decimal.RequireFromString("0.5")))
	// 24x7 rules add raw minutes, weekend or not.
	assert.Equal(t, at(t, "2024-03-09 10:08"), d.FirstResponseDeadline)
	assert.Equal(t, at(t, "2024-03-09 11:00"), d.ResolutionDeadline)
}

func TestComputeDeadlinesBusinessHours(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.ComputeDeadlines(DeadlineRequest{
		CreatedAt:    at(t, "2024-03-08 16:00"),
		Technical:    domain.TechnicalWarning,
		Business:     3,
		ServiceLevel: domain.ServiceLevelPremium,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityLow, d.Priority)
	assert.Equal(t, domain.ServiceHours8x5, d.ServiceHours)
	assert.True(t, d.AdjustmentFactor.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, at(t, "2024-03-11 14:00"), d.FirstResponseDeadline)
	assert.Equal(t, at(t, "2024-03-19 10:00"), d.ResolutionDeadline)
}

func TestComputeDeadlinesExtendedHours(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.ComputeDeadlines(DeadlineRequest{
		CreatedAt:    at(t, "2024-03-09 19:30"),
		Technical:    domain.TechnicalDisaster,
		Business:     0,
		ServiceLevel: domain.ServiceLevelStandard,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceHours12x7, d.ServiceHours)
	assert.Equal(t, at(t, "2024-03-10 08:30"), d.FirstResponseDeadline)
	assert.Equal(t, at(t, "2024-03-10 15:30"), d.ResolutionDeadline)
}

func TestComputeDeadlinesCalendarOverride(t *testing.T) {
	e := newTestEngine(t)
	cfg := domain.DefaultCalendar()
	cfg.WorkingHoursStart = domain.MustClockTime("09:00")
	cfg.WorkingHoursEnd = domain.MustClockTime("17:00")

	req := DeadlineRequest{
		CreatedAt:    at(t, "2024-03-04 08:00"),
		Technical:    domain.TechnicalInformation,
		Business:     0,
		ServiceLevel: domain.ServiceLevelPlatinum,
	}
	d, err := e.ComputeDeadlines(req)
	require.NoError(t, err)
	assert.Equal(t, at(t, "2024-03-04 12:00"), d.FirstResponseDeadline)

	req.Calendar = &cfg
	d, err = e.ComputeDeadlines(req)
	require.NoError(t, err)
	assert.Equal(t, at(t, "2024-03-04 13:00"), d.FirstResponseDeadline)

	cfg.WorkingHoursEnd = cfg.WorkingHoursStart
	_, err = e.ComputeDeadlines(req)
	assert.ErrorIs(t, err, ErrCalendarConfigInvalid)
}

func TestComputeDeadlinesIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	req := DeadlineRequest{
		CreatedAt:         at(t, "2024-02-29 17:45"),
		Technical:         domain.TechnicalHigh,
		Business:          2,
		ServiceLevel:      domain.ServiceLevelPremium,
		AdjustmentEnabled: true,
	}

	first, err := e.ComputeDeadlines(req)
	require.NoError(t, err)
	second, err := e.ComputeDeadlines(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeDeadlinesErrors(t *testing.T) {
	e := newTestEngine(t)
	base := DeadlineRequest{
		CreatedAt:    at(t, "2024-03-04 09:00"),
		Technical:    domain.TechnicalHigh,
		Business:     2,
		ServiceLevel: domain.ServiceLevelStandard,
	}

	t.Run("business out of range", func(t *testing.T) {
		req := base
		req.Business = 9
		_, err := e.ComputeDeadlines(req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown service level", func(t *testing.T) {
		req := base
		req.ServiceLevel = "gold"
		_, err := e.ComputeDeadlines(req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing creation time", func(t *testing.T) {
		req := base
		req.CreatedAt = time.Time{}
		_, err := e.ComputeDeadlines(req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing rule", func(t *testing.T) {
		broken := newTestEngine(t)
		broken.policy.Tables = DefaultTables()
		delete(broken.policy.Tables[domain.ServiceLevelStandard], domain.PriorityHigh)
		_, err := broken.ComputeDeadlines(base)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})
}

func TestNewEngineRejectsBrokenPolicy(t *testing.T) {
	p := DefaultPolicy()
	delete(p.Tables[domain.ServiceLevelCustom], domain.PriorityLow)
	_, err := NewEngine(p)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	p = DefaultPolicy()
	p.Extended = Window{Start: domain.MustClockTime("20:00"), End: domain.MustClockTime("08:00")}
	_, err = NewEngine(p)
	assert.ErrorIs(t, err, ErrCalendarConfigInvalid)

	p = DefaultPolicy()
	m := p.Escalations[domain.ServiceLevelPremium]
	m.CustomerRules = append(m.CustomerRules, domain.CustomerEscalationRule{WaitingDays: 4, Action: "fax", Active: true})
	p.Escalations[domain.ServiceLevelPremium] = m
	_, err = NewEngine(p)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewInstance(t *testing.T) {
	e := newTestEngine(t)
	req := DeadlineRequest{
		CreatedAt:         at(t, "2024-03-04 09:00"),
		Technical:         domain.TechnicalDisaster,
		Business:          0,
		ServiceLevel:      domain.ServiceLevelPlatinum,
		AdjustmentEnabled: true,
	}
	d, err := e.ComputeDeadlines(req)
	require.NoError(t, err)

	inst := NewInstance("T-1", req, d)
	assert.Equal(t, "T-1", inst.TicketID)
	assert.Equal(t, domain.PriorityCritical, inst.Priority)
	assert.Equal(t, domain.SLAStatusNormal, inst.Status)
	assert.Equal(t, d.ResolutionDeadline, inst.ResolutionDeadline)
	assert.False(t, inst.Violated)
	assert.Zero(t, inst.TotalPausedMinutes())
}
