package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SLAStatus is the rolled-up state of an SLA clock.
type SLAStatus string

const (
	SLAStatusNormal    SLAStatus = "normal"
	SLAStatusWarning   SLAStatus = "warning"
	SLAStatusCritical  SLAStatus = "critical"
	SLAStatusViolated  SLAStatus = "violated"
	SLAStatusPaused    SLAStatus = "paused"
	SLAStatusCompleted SLAStatus = "completed"
)

// ResponseStatus tracks the first-response clock.
type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseResponded ResponseStatus = "responded"
	ResponseOverdue   ResponseStatus = "overdue"
)

// ResolutionStatus tracks the resolution clock.
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "pending"
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionOverdue  ResolutionStatus = "overdue"
)

// SLAInstance is the mutable SLA record of one ticket or alert. TotalPaused is
// wall-clock pause time; PausedChargeable is the part of it that fell inside
// business hours of the instance's service-hours window and is what moves
// deadlines.
type SLAInstance struct {
	ID                      string
	TicketID                string
	TechnicalCriticality    TechnicalCriticality
	BusinessCriticality     BusinessCriticality
	ServiceLevel            ServiceLevel
	Priority                FinalPriority
	ServiceHours            ServiceHours
	AdjustmentFactor        decimal.Decimal
	CreatedAt               time.Time
	FirstResponseAt         *time.Time
	ResolvedAt              *time.Time
	FirstResponseDeadline   time.Time
	ResolutionDeadline      time.Time
	IsPaused                bool
	PausedAt                *time.Time
	TotalPaused             time.Duration
	PausedChargeable        time.Duration
	Status                  SLAStatus
	Violated                bool
	LastEscalationLevel     int
	LastInternalRulePercent int
	AwaitingCustomerSince   *time.Time
	LastCustomerAction      int
	UpdatedAt               time.Time
}

// TotalPausedMinutes reports accumulated pause time in whole minutes.
func (i *SLAInstance) TotalPausedMinutes() int {
	return int(i.TotalPaused / time.Minute)
}

// PausedChargeableMinutes reports paused business time in whole minutes.
func (i *SLAInstance) PausedChargeableMinutes() int {
	return int(i.PausedChargeable / time.Minute)
}

// Active reports whether the instance still needs evaluation.
func (i *SLAInstance) Active() bool {
	return i.ResolvedAt == nil
}
