package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/sla-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAStarted           EventType = "sla_started"
	EventSLAStatusChanged     EventType = "sla_status_changed"
	EventSLAEscalationReached EventType = "sla_escalation_reached"
	EventSLACustomerActionDue EventType = "sla_customer_action_due"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     *string     `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh ID.
func NewEvent(eventType EventType, ticketID string, actor *string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// SLAStartedPayload payload.
type SLAStartedPayload struct {
	ServiceLevel          domain.ServiceLevel  `json:"service_level"`
	Priority              domain.FinalPriority `json:"priority"`
	ServiceHours          domain.ServiceHours  `json:"service_hours"`
	FirstResponseDeadline time.Time            `json:"first_response_deadline"`
	ResolutionDeadline    time.Time            `json:"resolution_deadline"`
}

// SLAStatusChangedPayload payload.
type SLAStatusChangedPayload struct {
	OldStatus domain.SLAStatus `json:"old_status"`
	NewStatus domain.SLAStatus `json:"new_status"`
	Violated  bool             `json:"sla_violated"`
}

// EscalationTrigger names what raised an escalation.
type EscalationTrigger string

const (
	TriggerTimeLadder    EscalationTrigger = "time_ladder"
	TriggerSLAPercentage EscalationTrigger = "sla_percentage"
)

// SLAEscalationReachedPayload payload. Level is the time-ladder level reached
// so far; percentage escalations also carry the rule threshold.
type SLAEscalationReachedPayload struct {
	Trigger        EscalationTrigger    `json:"trigger"`
	ServiceLevel   domain.ServiceLevel  `json:"service_level"`
	Priority       domain.FinalPriority `json:"priority"`
	Level          int                  `json:"level"`
	NotifyTargets  []domain.Role        `json:"notify_targets"`
	ElapsedMinutes int                  `json:"elapsed_minutes"`
	ElapsedPercent int                  `json:"elapsed_percent"`
	RuleTarget     *domain.Role         `json:"rule_target,omitempty"`
	SLAPercentage  int                  `json:"sla_percentage,omitempty"`
}

// SLACustomerActionDuePayload payload.
type SLACustomerActionDuePayload struct {
	ServiceLevel domain.ServiceLevel   `json:"service_level"`
	Action       domain.CustomerAction `json:"action"`
	WaitingDays  int                   `json:"waiting_days"`
	Message      string                `json:"message,omitempty"`
}
