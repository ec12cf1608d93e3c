package sla

import (
	"sort"
	"time"

	"github.com/opsdesk/sla-service/internal/domain"
)

// EscalationView describes which escalations are due for an instance at one instant.
type EscalationView struct {
	ElapsedMinutes      int                            `json:"elapsed_minutes"`
	Level               *domain.EscalationLevel        `json:"level,omitempty"`
	NextLevel           *domain.EscalationLevel        `json:"next_level,omitempty"`
	MinutesToNextLevel  int                            `json:"minutes_to_next_level"`
	ElapsedPercent      int                            `json:"elapsed_percent"`
	InternalRule        *domain.InternalEscalationRule `json:"internal_rule,omitempty"`
	WaitingDays         int                            `json:"waiting_days"`
	CustomerAction      *domain.CustomerEscalationRule `json:"customer_action,omitempty"`
	CustomerActionIndex int                            `json:"customer_action_index"`
}

// Transition lists what an Advance call newly reached.
type Transition struct {
	Level          *domain.EscalationLevel
	InternalRule   *domain.InternalEscalationRule
	CustomerAction *domain.CustomerEscalationRule
}

// Empty reports whether nothing new was reached.
func (t Transition) Empty() bool {
	return t.Level == nil && t.InternalRule == nil && t.CustomerAction == nil
}

// LevelAt returns the highest level whose threshold elapsed has crossed, or nil.
func LevelAt(levels []domain.EscalationLevel, elapsed time.Duration) *domain.EscalationLevel {
	ordered := sortedLevels(levels)
	var reached *domain.EscalationLevel
	for i := range ordered {
		if time.Duration(ordered[i].MinutesBeforeEscalation)*time.Minute > elapsed {
			break
		}
		reached = &ordered[i]
	}
	return reached
}

// nextLevelAfter returns the first level whose threshold is still ahead.
func nextLevelAfter(levels []domain.EscalationLevel, elapsed time.Duration) *domain.EscalationLevel {
	for _, l := range sortedLevels(levels) {
		if time.Duration(l.MinutesBeforeEscalation)*time.Minute > elapsed {
			next := l
			return &next
		}
	}
	return nil
}

func sortedLevels(levels []domain.EscalationLevel) []domain.EscalationLevel {
	ordered := make([]domain.EscalationLevel, len(levels))
	copy(ordered, levels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinutesBeforeEscalation < ordered[j].MinutesBeforeEscalation
	})
	return ordered
}

// DueInternalRule returns the active percentage rule with the highest
// threshold that percent has reached, or nil.
func DueInternalRule(rules []domain.InternalEscalationRule, percent int) *domain.InternalEscalationRule {
	var due *domain.InternalEscalationRule
	for i := range rules {
		r := rules[i]
		if !r.Active || r.SLAPercentage > percent {
			continue
		}
		if due == nil || r.SLAPercentage > due.SLAPercentage {
			due = &r
		}
	}
	return due
}

// DueCustomerAction returns the active customer rule with the most waiting days
// reached after days of silence, with its 1-based position in the ladder
// ordered by waiting days. It returns 0 and nil when none is due.
func DueCustomerAction(rules []domain.CustomerEscalationRule, days int) (int, *domain.CustomerEscalationRule) {
	ordered := make([]domain.CustomerEscalationRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].WaitingDays < ordered[j].WaitingDays })

	index := 0
	var due *domain.CustomerEscalationRule
	for i := range ordered {
		if ordered[i].WaitingDays > days {
			break
		}
		if ordered[i].Active {
			index = i + 1
			due = &ordered[i]
		}
	}
	return index, due
}

// WaitingDays counts whole calendar days between since and now.
func WaitingDays(since, now time.Time) int {
	if !now.After(since) {
		return 0
	}
	return int(now.Sub(since) / (24 * time.Hour))
}

// ElapsedChargeable is the chargeable time an instance has consumed by now,
// excluding the chargeable part of its pauses. The clock stops at resolution.
func (e *Engine) ElapsedChargeable(inst *domain.SLAInstance, now time.Time) (time.Duration, error) {
	cal, err := e.CalendarFor(inst.ServiceHours)
	if err != nil {
		return 0, err
	}
	end := effectiveNow(inst, now)
	if inst.ResolvedAt != nil && inst.ResolvedAt.Before(end) {
		end = *inst.ResolvedAt
	}
	elapsed := cal.ChargeableBetween(inst.CreatedAt, end) - inst.PausedChargeable
	if elapsed < 0 {
		return 0, nil
	}
	return elapsed, nil
}

// CurrentLevel returns the internal escalation level due for inst, or nil.
func (e *Engine) CurrentLevel(inst *domain.SLAInstance, now time.Time) (*domain.EscalationLevel, error) {
	rule, err := e.Lookup(inst.ServiceLevel, inst.Priority)
	if err != nil {
		return nil, err
	}
	elapsed, err := e.ElapsedChargeable(inst, now)
	if err != nil {
		return nil, err
	}
	return LevelAt(rule.EscalationLevels, elapsed), nil
}

// CurrentEscalation evaluates the time ladder, the percentage rules and the
// customer ladder of inst. It does not mutate inst.
func (e *Engine) CurrentEscalation(inst *domain.SLAInstance, now time.Time) (EscalationView, error) {
	rule, err := e.Lookup(inst.ServiceLevel, inst.Priority)
	if err != nil {
		return EscalationView{}, err
	}
	cal, err := e.CalendarFor(inst.ServiceHours)
	if err != nil {
		return EscalationView{}, err
	}
	elapsed, err := e.ElapsedChargeable(inst, now)
	if err != nil {
		return EscalationView{}, err
	}

	view := EscalationView{
		ElapsedMinutes: wholeMinutes(elapsed),
		Level:          LevelAt(rule.EscalationLevels, elapsed),
		NextLevel:      nextLevelAfter(rule.EscalationLevels, elapsed),
	}
	if view.NextLevel != nil {
		view.MinutesToNextLevel = view.NextLevel.MinutesBeforeEscalation - view.ElapsedMinutes
	}

	matrix := e.Escalations(inst.ServiceLevel)
	if window := cal.ChargeableBetween(inst.CreatedAt, inst.ResolutionDeadline); window > 0 {
		view.ElapsedPercent = int(elapsed * 100 / window)
	}
	view.InternalRule = DueInternalRule(matrix.InternalRules, view.ElapsedPercent)

	if inst.AwaitingCustomerSince != nil && inst.Active() {
		view.WaitingDays = WaitingDays(*inst.AwaitingCustomerSince, now)
		view.CustomerActionIndex, view.CustomerAction = DueCustomerAction(matrix.CustomerRules, view.WaitingDays)
	}
	return view, nil
}

// Advance records on inst whatever view reached beyond what was already
// recorded and returns only those new steps. Calling it again with the same
// view returns an empty transition.
func Advance(inst *domain.SLAInstance, view EscalationView) Transition {
	var t Transition
	if view.Level != nil && view.Level.Index > inst.LastEscalationLevel {
		inst.LastEscalationLevel = view.Level.Index
		t.Level = view.Level
	}
	if view.InternalRule != nil && view.InternalRule.SLAPercentage > inst.LastInternalRulePercent {
		inst.LastInternalRulePercent = view.InternalRule.SLAPercentage
		t.InternalRule = view.InternalRule
	}
	if view.CustomerAction != nil && view.CustomerActionIndex > inst.LastCustomerAction {
		inst.LastCustomerAction = view.CustomerActionIndex
		t.CustomerAction = view.CustomerAction
	}
	return t
}
