package domain

import "fmt"

// TechnicalCriticality is the severity reported by monitoring.
type TechnicalCriticality string

const (
	TechnicalInformation TechnicalCriticality = "Information"
	TechnicalWarning     TechnicalCriticality = "Warning"
	TechnicalAverage     TechnicalCriticality = "Average"
	TechnicalHigh        TechnicalCriticality = "High"
	TechnicalDisaster    TechnicalCriticality = "Disaster"
)

// TechnicalCriticalities lists every severity from lowest to highest.
var TechnicalCriticalities = []TechnicalCriticality{
	TechnicalInformation,
	TechnicalWarning,
	TechnicalAverage,
	TechnicalHigh,
	TechnicalDisaster,
}

// Rank returns the ordinal of the severity, or -1 when unknown.
func (t TechnicalCriticality) Rank() int {
	for i, c := range TechnicalCriticalities {
		if c == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is a known severity.
func (t TechnicalCriticality) Valid() bool {
	return t.Rank() >= 0
}

// BusinessCriticality is the business importance of an asset. 0 is the most critical.
type BusinessCriticality int

const (
	MinBusinessCriticality BusinessCriticality = 0
	MaxBusinessCriticality BusinessCriticality = 5
)

// Valid reports whether b lies in [0, 5].
func (b BusinessCriticality) Valid() bool {
	return b >= MinBusinessCriticality && b <= MaxBusinessCriticality
}

// FinalPriority is the priority label derived from both criticalities.
type FinalPriority string

const (
	PriorityCritical FinalPriority = "Crítica"
	PriorityVeryHigh FinalPriority = "Muito Alta"
	PriorityHigh     FinalPriority = "Alta"
	PriorityMedium   FinalPriority = "Média"
	PriorityLow      FinalPriority = "Baixa"
	PriorityVeryLow  FinalPriority = "Muito Baixa"
)

// FinalPriorities lists every priority from highest to lowest.
var FinalPriorities = []FinalPriority{
	PriorityCritical,
	PriorityVeryHigh,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityVeryLow,
}

// Rank orders priorities so that a higher rank means a more urgent priority.
// Unknown labels rank -1.
func (p FinalPriority) Rank() int {
	for i, fp := range FinalPriorities {
		if fp == p {
			return len(FinalPriorities) - 1 - i
		}
	}
	return -1
}

// Valid reports whether p is a known priority label.
func (p FinalPriority) Valid() bool {
	return p.Rank() >= 0
}

// ServiceLevel selects which SLA base table applies to a contract.
type ServiceLevel string

const (
	ServiceLevelPlatinum ServiceLevel = "platinum"
	ServiceLevelPremium  ServiceLevel = "premium"
	ServiceLevelStandard ServiceLevel = "standard"
	ServiceLevelCustom   ServiceLevel = "custom"
)

// Valid reports whether s is a known service level.
func (s ServiceLevel) Valid() bool {
	switch s {
	case ServiceLevelPlatinum, ServiceLevelPremium, ServiceLevelStandard, ServiceLevelCustom:
		return true
	}
	return false
}

// ServiceHours is the window during which an SLA clock runs.
type ServiceHours string

const (
	ServiceHours24x7 ServiceHours = "24x7"
	ServiceHours12x7 ServiceHours = "12x7"
	ServiceHours8x5  ServiceHours = "8x5"
)

// Valid reports whether h is a known window.
func (h ServiceHours) Valid() bool {
	switch h {
	case ServiceHours24x7, ServiceHours12x7, ServiceHours8x5:
		return true
	}
	return false
}

// Role is an internal escalation target.
type Role string

const (
	RoleN1       Role = "N1"
	RoleN2       Role = "N2"
	RoleN3       Role = "N3"
	RoleManager  Role = "Manager"
	RoleDirector Role = "Director"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleN1, RoleN2, RoleN3, RoleManager, RoleDirector:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}
