package sla

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/opsdesk/sla-service/internal/domain"
)

// Engine evaluates SLAs against one validated policy. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	policy   Policy
	base     *Calendar
	extended *Calendar
	always   *Calendar
}

// NewEngine validates the policy and builds the calendars of every service-hours window.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{policy: policy, always: AlwaysOpen()}
	var err error
	if e.base, err = NewCalendar(policy.Calendar); err != nil {
		return nil, err
	}
	if e.extended, err = NewCalendar(extendedCalendar(policy.Calendar, policy.Extended)); err != nil {
		return nil, err
	}
	return e, nil
}

// extendedCalendar opens every day of the week for the 12x7 window and keeps
// the holidays of the base calendar.
func extendedCalendar(base domain.CalendarConfig, w Window) domain.CalendarConfig {
	return domain.CalendarConfig{
		WorkingDays:                  [7]bool{true, true, true, true, true, true, true},
		WorkingHoursStart:            w.Start,
		WorkingHoursEnd:              w.End,
		Holidays:                     base.Holidays,
		ExcludeHolidays:              base.ExcludeHolidays,
		ExtendDeadlinesAfterHolidays: base.ExtendDeadlinesAfterHolidays,
	}
}

// Policy returns the policy the engine was built from.
func (e *Engine) Policy() Policy {
	return e.policy
}

// PriorityMatrix returns the configured priority matrix.
func (e *Engine) PriorityMatrix() PriorityMatrix {
	return e.policy.Matrix
}

// Resolve maps both criticalities to a final priority.
func (e *Engine) Resolve(tech domain.TechnicalCriticality, business domain.BusinessCriticality) (domain.FinalPriority, error) {
	return e.policy.Matrix.Resolve(tech, business)
}

// Lookup returns the base rule of a service level and priority.
func (e *Engine) Lookup(level domain.ServiceLevel, priority domain.FinalPriority) (domain.SLARule, error) {
	return e.policy.Tables.Lookup(level, priority)
}

// Adjust scales base minutes by the configured factor of the business criticality.
func (e *Engine) Adjust(baseMinutes int, business domain.BusinessCriticality, enabled bool) (int, error) {
	return e.policy.Factors.Adjust(baseMinutes, business, enabled)
}

// Factor returns the adjustment factor that applies.
func (e *Engine) Factor(business domain.BusinessCriticality, enabled bool) (decimal.Decimal, error) {
	return e.policy.Factors.Factor(business, enabled)
}

// Escalations returns the percentage and customer ladders of a service level.
func (e *Engine) Escalations(level domain.ServiceLevel) domain.EscalationMatrix {
	return e.policy.Escalations[level]
}

// CalendarFor returns the calendar that charges time for a service-hours window.
func (e *Engine) CalendarFor(hours domain.ServiceHours) (*Calendar, error) {
	return e.calendarFor(hours, e.base, e.extended)
}

func (e *Engine) calendarFor(hours domain.ServiceHours, base, extended *Calendar) (*Calendar, error) {
	switch hours {
	case domain.ServiceHours24x7:
		return e.always, nil
	case domain.ServiceHours12x7:
		return extended, nil
	case domain.ServiceHours8x5:
		return base, nil
	}
	return nil, fmt.Errorf("%w: unknown service hours %q", ErrInvalidInput, hours)
}
