package domain

import "time"

// SLAChangeType captures what changed in a history entry.
type SLAChangeType string

const (
	ChangeTypeStarted       SLAChangeType = "SLA_STARTED"
	ChangeTypeStatus        SLAChangeType = "STATUS_CHANGE"
	ChangeTypePaused        SLAChangeType = "PAUSED"
	ChangeTypeResumed       SLAChangeType = "RESUMED"
	ChangeTypeFirstResponse SLAChangeType = "FIRST_RESPONSE"
	ChangeTypeResolved      SLAChangeType = "RESOLVED"
	ChangeTypeEscalated     SLAChangeType = "ESCALATED"
	ChangeTypeCustomer      SLAChangeType = "CUSTOMER_ACTION"
)

// SLAHistory is an immutable audit trail entry.
type SLAHistory struct {
	ID         string
	TicketID   string
	ChangedBy  *string
	ChangeType SLAChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
