package sla

import (
	"fmt"

	"github.com/opsdesk/sla-service/internal/domain"
)

// BaseTable holds the SLA rules of every service level, keyed by final priority.
type BaseTable map[domain.ServiceLevel]map[domain.FinalPriority]domain.SLARule

// Lookup returns the rule for the pair. A miss is a configuration defect.
func (t BaseTable) Lookup(level domain.ServiceLevel, priority domain.FinalPriority) (domain.SLARule, error) {
	rules, ok := t[level]
	if !ok {
		return domain.SLARule{}, fmt.Errorf("%w: service level %q", ErrRuleNotFound, level)
	}
	rule, ok := rules[priority]
	if !ok {
		return domain.SLARule{}, fmt.Errorf("%w: service level %q priority %q", ErrRuleNotFound, level, priority)
	}
	return rule, nil
}

// Validate checks that every service level carries a rule for every priority
// and that each rule is well formed.
func (t BaseTable) Validate() error {
	for _, level := range []domain.ServiceLevel{
		domain.ServiceLevelPlatinum, domain.ServiceLevelPremium,
		domain.ServiceLevelStandard, domain.ServiceLevelCustom,
	} {
		for _, priority := range domain.FinalPriorities {
			rule, err := t.Lookup(level, priority)
			if err != nil {
				return err
			}
			if err := validateRule(rule); err != nil {
				return fmt.Errorf("%s/%s: %w", level, priority, err)
			}
		}
	}
	for level := range t {
		if !level.Valid() {
			return fmt.Errorf("%w: unknown service level %q", ErrInvalidInput, level)
		}
	}
	return nil
}

func validateRule(rule domain.SLARule) error {
	if rule.ResponseTimeMinutes <= 0 || rule.ResolutionTimeMinutes <= 0 {
		return fmt.Errorf("%w: response and resolution minutes must be positive", ErrInvalidInput)
	}
	if !rule.ServiceHours.Valid() {
		return fmt.Errorf("%w: unknown service hours %q", ErrInvalidInput, rule.ServiceHours)
	}
	prev := 0
	for i, level := range rule.EscalationLevels {
		if level.MinutesBeforeEscalation <= prev {
			return fmt.Errorf("%w: escalation level %d must be later than the previous one", ErrInvalidInput, i+1)
		}
		prev = level.MinutesBeforeEscalation
		for _, role := range level.NotifyTargets {
			if _, err := domain.ParseRole(string(role)); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
		}
	}
	return nil
}
