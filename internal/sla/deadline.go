package sla

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsdesk/sla-service/internal/domain"
)

// DeadlineRequest carries the inputs of a deadline computation. Calendar
// overrides the policy calendar when set.
type DeadlineRequest struct {
	CreatedAt         time.Time
	Technical         domain.TechnicalCriticality
	Business          domain.BusinessCriticality
	ServiceLevel      domain.ServiceLevel
	AdjustmentEnabled bool
	Calendar          *domain.CalendarConfig
}

// Deadlines is the outcome of ComputeDeadlines.
type Deadlines struct {
	Priority              domain.FinalPriority     `json:"final_priority"`
	ServiceHours          domain.ServiceHours      `json:"service_hours"`
	AdjustmentFactor      decimal.Decimal          `json:"adjustment_factor"`
	BaseResponseMinutes   int                      `json:"base_response_minutes"`
	BaseResolutionMinutes int                      `json:"base_resolution_minutes"`
	ResponseMinutes       int                      `json:"response_minutes"`
	ResolutionMinutes     int                      `json:"resolution_minutes"`
	FirstResponseDeadline time.Time                `json:"first_response_deadline"`
	ResolutionDeadline    time.Time                `json:"resolution_deadline"`
	EscalationLevels      []domain.EscalationLevel `json:"escalation_levels"`
}

// ComputeDeadlines resolves the priority, looks up the base rule, adjusts it
// and adds the adjusted minutes on the calendar of the rule's service hours.
func (e *Engine) ComputeDeadlines(req DeadlineRequest) (Deadlines, error) {
	if req.CreatedAt.IsZero() {
		return Deadlines{}, fmt.Errorf("%w: created at is required", ErrInvalidInput)
	}
	if !req.ServiceLevel.Valid() {
		return Deadlines{}, fmt.Errorf("%w: unknown service level %q", ErrInvalidInput, req.ServiceLevel)
	}

	priority, err := e.Resolve(req.Technical, req.Business)
	if err != nil {
		return Deadlines{}, err
	}
	rule, err := e.Lookup(req.ServiceLevel, priority)
	if err != nil {
		return Deadlines{}, err
	}
	response, err := e.Adjust(rule.ResponseTimeMinutes, req.Business, req.AdjustmentEnabled)
	if err != nil {
		return Deadlines{}, err
	}
	resolution, err := e.Adjust(rule.ResolutionTimeMinutes, req.Business, req.AdjustmentEnabled)
	if err != nil {
		return Deadlines{}, err
	}
	factor, err := e.Factor(req.Business, req.AdjustmentEnabled)
	if err != nil {
		return Deadlines{}, err
	}

	cal, err := e.requestCalendar(rule.ServiceHours, req.Calendar)
	if err != nil {
		return Deadlines{}, err
	}
	firstResponse, err := addOnCalendar(cal, req.CreatedAt, response)
	if err != nil {
		return Deadlines{}, err
	}
	resolutionAt, err := addOnCalendar(cal, req.CreatedAt, resolution)
	if err != nil {
		return Deadlines{}, err
	}

	return Deadlines{
		Priority:              priority,
		ServiceHours:          rule.ServiceHours,
		AdjustmentFactor:      factor,
		BaseResponseMinutes:   rule.ResponseTimeMinutes,
		BaseResolutionMinutes: rule.ResolutionTimeMinutes,
		ResponseMinutes:       response,
		ResolutionMinutes:     resolution,
		FirstResponseDeadline: firstResponse,
		ResolutionDeadline:    resolutionAt,
		EscalationLevels:      rule.EscalationLevels,
	}, nil
}

func (e *Engine) requestCalendar(hours domain.ServiceHours, override *domain.CalendarConfig) (*Calendar, error) {
	if override == nil {
		return e.CalendarFor(hours)
	}
	base, err := NewCalendar(*override)
	if err != nil {
		return nil, err
	}
	extended, err := NewCalendar(extendedCalendar(*override, e.policy.Extended))
	if err != nil {
		return nil, err
	}
	return e.calendarFor(hours, base, extended)
}

func addOnCalendar(cal *Calendar, start time.Time, minutes int) (time.Time, error) {
	at, err := cal.AddChargeable(start, time.Duration(minutes)*time.Minute)
	if err != nil {
		return time.Time{}, err
	}
	return cal.ExtendPastClosedDay(at)
}

// NewInstance seeds an SLA instance for a ticket from computed deadlines.
func NewInstance(ticketID string, req DeadlineRequest, d Deadlines) *domain.SLAInstance {
	return &domain.SLAInstance{
		TicketID:              ticketID,
		TechnicalCriticality:  req.Technical,
		BusinessCriticality:   req.Business,
		ServiceLevel:          req.ServiceLevel,
		Priority:              d.Priority,
		ServiceHours:          d.ServiceHours,
		AdjustmentFactor:      d.AdjustmentFactor,
		CreatedAt:             req.CreatedAt,
		FirstResponseDeadline: d.FirstResponseDeadline,
		ResolutionDeadline:    d.ResolutionDeadline,
		Status:                domain.SLAStatusNormal,
		UpdatedAt:             req.CreatedAt,
	}
}
