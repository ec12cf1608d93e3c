package sla

import (
	"fmt"

	"github.com/opsdesk/sla-service/internal/domain"
)

// Window is a daily opening window.
type Window struct {
	Start domain.ClockTime
	End   domain.ClockTime
}

// Policy is the full, read-only configuration of the engine.
type Policy struct {
	Matrix      PriorityMatrix
	Tables      BaseTable
	Factors     FactorTable
	Calendar    domain.CalendarConfig
	Extended    Window
	Escalations map[domain.ServiceLevel]domain.EscalationMatrix
}

// Validate checks every part of the policy.
func (p Policy) Validate() error {
	if err := p.Matrix.Validate(); err != nil {
		return err
	}
	if err := p.Tables.Validate(); err != nil {
		return err
	}
	if err := p.Factors.Validate(); err != nil {
		return err
	}
	if err := ValidateCalendar(p.Calendar); err != nil {
		return err
	}
	if p.Extended.Start >= p.Extended.End || p.Extended.End > 24*60 || p.Extended.Start < 0 {
		return fmt.Errorf("%w: 12x7 window %s-%s", ErrCalendarConfigInvalid, p.Extended.Start, p.Extended.End)
	}
	for level, m := range p.Escalations {
		if err := validateEscalationMatrix(m); err != nil {
			return fmt.Errorf("escalation matrix %s: %w", level, err)
		}
	}
	return nil
}

func validateEscalationMatrix(m domain.EscalationMatrix) error {
	for _, r := range m.InternalRules {
		if r.SLAPercentage <= 0 || r.SLAPercentage > 100 {
			return fmt.Errorf("%w: sla percentage %d outside 1-100", ErrInvalidInput, r.SLAPercentage)
		}
		if _, err := domain.ParseRole(string(r.TargetLevel)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	for _, r := range m.CustomerRules {
		if r.WaitingDays <= 0 {
			return fmt.Errorf("%w: waiting days %d must be positive", ErrInvalidInput, r.WaitingDays)
		}
		if !r.Action.Valid() {
			return fmt.Errorf("%w: unknown customer action %q", ErrInvalidInput, r.Action)
		}
	}
	return nil
}

func levels(steps ...any) []domain.EscalationLevel {
	var out []domain.EscalationLevel
	for i := 0; i+1 < len(steps); i += 2 {
		out = append(out, domain.EscalationLevel{
			Index:                   len(out) + 1,
			MinutesBeforeEscalation: steps[i].(int),
			NotifyTargets:           steps[i+1].([]domain.Role),
		})
	}
	return out
}

func rule(p domain.FinalPriority, response, resolution int, hours domain.ServiceHours, ladder []domain.EscalationLevel) domain.SLARule {
	return domain.SLARule{
		Priority:              p,
		ResponseTimeMinutes:   response,
		ResolutionTimeMinutes: resolution,
		ServiceHours:          hours,
		EscalationLevels:      ladder,
	}
}

func roles(r ...domain.Role) []domain.Role { return r }

// DefaultTables seeds the platinum, premium, standard and custom tables.
func DefaultTables() BaseTable {
	return BaseTable{
		domain.ServiceLevelPlatinum: {
			domain.PriorityCritical: rule(domain.PriorityCritical, 15, 120, domain.ServiceHours24x7, levels(
				30, roles(domain.RoleN1, domain.RoleN2),
				60, roles(domain.RoleN2, domain.RoleManager),
				90, roles(domain.RoleManager, domain.RoleDirector))),
			domain.PriorityVeryHigh: rule(domain.PriorityVeryHigh, 30, 240, domain.ServiceHours24x7, levels(
				60, roles(domain.RoleN1),
				120, roles(domain.RoleN1, domain.RoleN2),
				180, roles(domain.RoleN2, domain.RoleManager))),
			domain.PriorityHigh: rule(domain.PriorityHigh, 60, 480, domain.ServiceHours24x7, levels(
				120, roles(domain.RoleN1),
				240, roles(domain.RoleN1, domain.RoleN2))),
			domain.PriorityMedium: rule(domain.PriorityMedium, 120, 960, domain.ServiceHours12x7, levels(
				240, roles(domain.RoleN1))),
			domain.PriorityLow: rule(domain.PriorityLow, 240, 1920, domain.ServiceHours8x5, levels(
				480, roles(domain.RoleN1))),
			domain.PriorityVeryLow: rule(domain.PriorityVeryLow, 480, 3840, domain.ServiceHours8x5, nil),
		},
		domain.ServiceLevelPremium: {
			domain.PriorityCritical: rule(domain.PriorityCritical, 30, 240, domain.ServiceHours24x7, levels(
				60, roles(domain.RoleN1),
				120, roles(domain.RoleN1, domain.RoleN2))),
			domain.PriorityVeryHigh: rule(domain.PriorityVeryHigh, 60, 480, domain.ServiceHours24x7, levels(
				120, roles(domain.RoleN1),
				240, roles(domain.RoleN1, domain.RoleN2))),
			domain.PriorityHigh: rule(domain.PriorityHigh, 120, 960, domain.ServiceHours12x7, levels(
				240, roles(domain.RoleN1))),
			domain.PriorityMedium: rule(domain.PriorityMedium, 240, 1920, domain.ServiceHours8x5, levels(
				480, roles(domain.RoleN1))),
			domain.PriorityLow:     rule(domain.PriorityLow, 480, 3840, domain.ServiceHours8x5, nil),
			domain.PriorityVeryLow: rule(domain.PriorityVeryLow, 960, 7680, domain.ServiceHours8x5, nil),
		},
		domain.ServiceLevelStandard: {
			domain.PriorityCritical: rule(domain.PriorityCritical, 60, 480, domain.ServiceHours12x7, levels(
				120, roles(domain.RoleN1))),
			domain.PriorityVeryHigh: rule(domain.PriorityVeryHigh, 120, 960, domain.ServiceHours12x7, levels(
				240, roles(domain.RoleN1))),
			domain.PriorityHigh:    rule(domain.PriorityHigh, 240, 1920, domain.ServiceHours8x5, nil),
			domain.PriorityMedium:  rule(domain.PriorityMedium, 480, 3840, domain.ServiceHours8x5, nil),
			domain.PriorityLow:     rule(domain.PriorityLow, 960, 7680, domain.ServiceHours8x5, nil),
			domain.PriorityVeryLow: rule(domain.PriorityVeryLow, 1920, 15360, domain.ServiceHours8x5, nil),
		},
		domain.ServiceLevelCustom: {
			domain.PriorityCritical: rule(domain.PriorityCritical, 30, 240, domain.ServiceHours8x5, levels(
				60, roles(domain.RoleN2))),
			domain.PriorityVeryHigh: rule(domain.PriorityVeryHigh, 60, 480, domain.ServiceHours8x5, nil),
			domain.PriorityHigh:     rule(domain.PriorityHigh, 120, 720, domain.ServiceHours8x5, nil),
			domain.PriorityMedium:   rule(domain.PriorityMedium, 240, 1440, domain.ServiceHours8x5, nil),
			domain.PriorityLow:      rule(domain.PriorityLow, 480, 2880, domain.ServiceHours8x5, nil),
			domain.PriorityVeryLow:  rule(domain.PriorityVeryLow, 960, 5760, domain.ServiceHours8x5, nil),
		},
	}
}

// DefaultEscalations seeds the percentage and customer ladders per service level.
func DefaultEscalations() map[domain.ServiceLevel]domain.EscalationMatrix {
	internal := func(pct int, role domain.Role) domain.InternalEscalationRule {
		return domain.InternalEscalationRule{SLAPercentage: pct, TargetLevel: role, Active: true}
	}
	customer := func(days int, action domain.CustomerAction) domain.CustomerEscalationRule {
		return domain.CustomerEscalationRule{WaitingDays: days, Action: action, Active: true}
	}
	return map[domain.ServiceLevel]domain.EscalationMatrix{
		domain.ServiceLevelPlatinum: {
			ServiceLevel:  domain.ServiceLevelPlatinum,
			InternalRules: []domain.InternalEscalationRule{internal(50, domain.RoleN2), internal(75, domain.RoleN3), internal(90, domain.RoleManager)},
			CustomerRules: []domain.CustomerEscalationRule{customer(1, domain.CustomerActionEmail), customer(3, domain.CustomerActionCall), customer(7, domain.CustomerActionAutoClose)},
		},
		domain.ServiceLevelPremium: {
			ServiceLevel:  domain.ServiceLevelPremium,
			InternalRules: []domain.InternalEscalationRule{internal(50, domain.RoleN2), internal(80, domain.RoleManager)},
			CustomerRules: []domain.CustomerEscalationRule{customer(2, domain.CustomerActionEmail), customer(5, domain.CustomerActionSMS), customer(10, domain.CustomerActionAutoClose)},
		},
		domain.ServiceLevelStandard: {
			ServiceLevel:  domain.ServiceLevelStandard,
			InternalRules: []domain.InternalEscalationRule{internal(75, domain.RoleN2)},
			CustomerRules: []domain.CustomerEscalationRule{customer(3, domain.CustomerActionEmail), customer(14, domain.CustomerActionAutoClose)},
		},
		domain.ServiceLevelCustom: {
			ServiceLevel:  domain.ServiceLevelCustom,
			InternalRules: []domain.InternalEscalationRule{internal(50, domain.RoleN2)},
			CustomerRules: []domain.CustomerEscalationRule{customer(3, domain.CustomerActionEmail)},
		},
	}
}

// DefaultPolicy returns the seeded policy.
func DefaultPolicy() Policy {
	return Policy{
		Matrix:      DefaultPriorityMatrix(),
		Tables:      DefaultTables(),
		Factors:     DefaultFactors(),
		Calendar:    domain.DefaultCalendar(),
		Extended:    Window{Start: domain.MustClockTime("08:00"), End: domain.MustClockTime("20:00")},
		Escalations: DefaultEscalations(),
	}
}
