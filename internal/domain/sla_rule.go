package domain

// EscalationLevel is one rung of an internal escalation ladder.
type EscalationLevel struct {
	Index                   int    `json:"level"`
	MinutesBeforeEscalation int    `json:"minutes_before_escalation"`
	NotifyTargets           []Role `json:"notify_targets"`
}

// SLARule holds base times for one priority within a service level.
type SLARule struct {
	Priority              FinalPriority     `json:"priority"`
	ResponseTimeMinutes   int               `json:"response_time_minutes"`
	ResolutionTimeMinutes int               `json:"resolution_time_minutes"`
	ServiceHours          ServiceHours      `json:"service_hours"`
	EscalationLevels      []EscalationLevel `json:"escalation_levels"`
}

// InternalEscalationRule escalates once a share of the resolution window has elapsed.
type InternalEscalationRule struct {
	SLAPercentage int    `json:"sla_percentage"`
	TargetLevel   Role   `json:"target_level"`
	Message       string `json:"message,omitempty"`
	Active        bool   `json:"active"`
}

// CustomerAction is what happens when a customer stays silent.
type CustomerAction string

const (
	CustomerActionEmail     CustomerAction = "email"
	CustomerActionSMS       CustomerAction = "sms"
	CustomerActionCall      CustomerAction = "call"
	CustomerActionAutoClose CustomerAction = "auto_close"
)

// Valid reports whether a is a known action.
func (a CustomerAction) Valid() bool {
	switch a {
	case CustomerActionEmail, CustomerActionSMS, CustomerActionCall, CustomerActionAutoClose:
		return true
	}
	return false
}

// CustomerEscalationRule fires after a number of calendar days of customer inaction.
type CustomerEscalationRule struct {
	WaitingDays int            `json:"waiting_days"`
	Action      CustomerAction `json:"action"`
	Message     string         `json:"message,omitempty"`
	Active      bool           `json:"active"`
}

// EscalationMatrix groups the percentage and customer ladders of a service level.
type EscalationMatrix struct {
	ServiceLevel  ServiceLevel             `json:"service_level"`
	InternalRules []InternalEscalationRule `json:"internal_rules"`
	CustomerRules []CustomerEscalationRule `json:"customer_rules"`
}
