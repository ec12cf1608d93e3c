package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/sla"
)

// HolidayRequest is one calendar holiday. Date uses YYYY-MM-DD.
type HolidayRequest struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Recurring bool   `json:"recurring_yearly"`
}

// CalendarRequest overrides the support calendar for one computation.
// Omitted fields keep the Monday to Friday 08:00-18:00 defaults.
type CalendarRequest struct {
	AlwaysOn                     bool             `json:"is_operational_24x7"`
	WorkingDays                  []int            `json:"working_days"`
	WorkingHoursStart            string           `json:"working_hours_start"`
	WorkingHoursEnd              string           `json:"working_hours_end"`
	Holidays                     []HolidayRequest `json:"holidays"`
	ExcludeWeekends              *bool            `json:"exclude_weekends"`
	ExcludeHolidays              *bool            `json:"exclude_holidays"`
	ExtendDeadlinesAfterHolidays *bool            `json:"extend_deadlines_after_holidays"`
}

// ToDomain converts the request into a calendar configuration. Semantic
// checks are left to the engine.
func (r CalendarRequest) ToDomain() (domain.CalendarConfig, error) {
	cfg := domain.DefaultCalendar()
	cfg.AlwaysOn = r.AlwaysOn
	if r.WorkingDays != nil {
		cfg.WorkingDays = [7]bool{}
		for _, d := range r.WorkingDays {
			if d < 0 || d > 6 {
				return cfg, fmt.Errorf("working day %d out of range 0-6", d)
			}
			cfg.WorkingDays[d] = true
		}
	}
	if r.WorkingHoursStart != "" {
		start, err := domain.ParseClockTime(r.WorkingHoursStart)
		if err != nil {
			return cfg, err
		}
		cfg.WorkingHoursStart = start
	}
	if r.WorkingHoursEnd != "" {
		end, err := domain.ParseClockTime(r.WorkingHoursEnd)
		if err != nil {
			return cfg, err
		}
		cfg.WorkingHoursEnd = end
	}
	for _, h := range r.Holidays {
		date, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			return cfg, fmt.Errorf("holiday %q: invalid date %q", h.Name, h.Date)
		}
		cfg.Holidays = append(cfg.Holidays, domain.Holiday{Name: h.Name, Date: date, Recurring: h.Recurring})
	}
	if r.ExcludeWeekends != nil {
		cfg.ExcludeWeekends = *r.ExcludeWeekends
	}
	if r.ExcludeHolidays != nil {
		cfg.ExcludeHolidays = *r.ExcludeHolidays
	}
	if r.ExtendDeadlinesAfterHolidays != nil {
		cfg.ExtendDeadlinesAfterHolidays = *r.ExtendDeadlinesAfterHolidays
	}
	return cfg, nil
}

// DeadlineRequest payload for previews and tracking.
type DeadlineRequest struct {
	CreatedAt            *time.Time                  `json:"created_at"`
	TechnicalCriticality domain.TechnicalCriticality `json:"technical_criticality"`
	BusinessCriticality  *int                        `json:"business_criticality"`
	ServiceLevel         domain.ServiceLevel         `json:"service_level"`
	AdjustmentEnabled    bool                        `json:"use_business_criticality_adjustment"`
	Calendar             *CalendarRequest            `json:"calendar"`
}

// StartTrackingRequest payload.
type StartTrackingRequest struct {
	TicketID string `json:"ticket_id"`
	DeadlineRequest
}

// MutationRequest carries the optional instant of a clock operation.
type MutationRequest struct {
	At *time.Time `json:"at"`
}

// AwaitingCustomerRequest payload.
type AwaitingCustomerRequest struct {
	Awaiting *bool      `json:"awaiting"`
	At       *time.Time `json:"at"`
}

// DeadlinesResponse is a computed deadline set with display labels.
type DeadlinesResponse struct {
	sla.Deadlines
	ResponseTimeLabel   string `json:"response_time_label"`
	ResolutionTimeLabel string `json:"resolution_time_label"`
}

// SLAInstanceResponse is the stored SLA of a ticket with its evaluation.
type SLAInstanceResponse struct {
	ID                       string                      `json:"id"`
	TicketID                 string                      `json:"ticket_id"`
	TechnicalCriticality     domain.TechnicalCriticality `json:"technical_criticality"`
	BusinessCriticality      domain.BusinessCriticality  `json:"business_criticality"`
	ServiceLevel             domain.ServiceLevel         `json:"service_level"`
	Priority                 domain.FinalPriority        `json:"final_priority"`
	ServiceHours             domain.ServiceHours         `json:"service_hours"`
	AdjustmentFactor         decimal.Decimal             `json:"adjustment_factor"`
	CreatedAt                time.Time                   `json:"created_at"`
	FirstResponseAt          *time.Time                  `json:"first_response_at"`
	ResolvedAt               *time.Time                  `json:"resolved_at"`
	IsPaused                 bool                        `json:"is_paused"`
	PausedAt                 *time.Time                  `json:"paused_at"`
	TotalPausedMinutes       int                         `json:"total_paused_minutes"`
	PausedChargeableMinutes  int                         `json:"paused_chargeable_minutes"`
	AwaitingCustomerSince    *time.Time                  `json:"awaiting_customer_since"`
	LastEscalationLevel      int                         `json:"last_escalation_level"`
	SLAAvailable             bool                        `json:"sla_available"`
	UnavailableReason        string                      `json:"sla_unavailable_reason,omitempty"`
	Timer                    sla.StatusSnapshot          `json:"timer"`
	RemainingResponseLabel   string                      `json:"remaining_response_label"`
	RemainingResolutionLabel string                      `json:"remaining_resolution_label"`
	UpdatedAt                time.Time                   `json:"updated_at"`
}

// EscalationResponse is the escalation state of a ticket.
type EscalationResponse struct {
	TicketID            string `json:"ticket_id"`
	LastEscalationLevel int    `json:"last_escalation_level"`
	LastCustomerAction  int    `json:"last_customer_action"`
	SLAAvailable        bool   `json:"sla_available"`
	UnavailableReason   string `json:"sla_unavailable_reason,omitempty"`
	ElapsedLabel        string `json:"elapsed_label"`
	sla.EscalationView
}

// PriorityMatrixEntry is one cell of the priority matrix.
type PriorityMatrixEntry struct {
	TechnicalCriticality domain.TechnicalCriticality `json:"technical_criticality"`
	BusinessCriticality  domain.BusinessCriticality  `json:"business_criticality"`
	Priority             domain.FinalPriority        `json:"priority"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID         string               `json:"id"`
	ChangedBy  *string              `json:"changed_by"`
	ChangeType domain.SLAChangeType `json:"change_type"`
	OldValue   map[string]any       `json:"old_value,omitempty"`
	NewValue   map[string]any       `json:"new_value,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}
