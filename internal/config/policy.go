package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/sla"
)

// PolicyFile is the YAML shape of an SLA policy. Sections left out keep the
// built-in defaults.
type PolicyFile struct {
	PriorityMatrix    map[string][]string         `yaml:"priority_matrix"`
	AdjustmentFactors []string                    `yaml:"adjustment_factors"`
	Calendar          *CalendarFile               `yaml:"calendar"`
	ExtendedHours     *HoursFile                  `yaml:"extended_hours"`
	ServiceLevels     map[string]ServiceLevelFile `yaml:"service_levels"`
}

// HoursFile is a daily window written as "HH:MM".
type HoursFile struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// CalendarFile describes the support calendar.
type CalendarFile struct {
	AlwaysOn                     bool          `yaml:"always_on"`
	WorkingDays                  []string      `yaml:"working_days"`
	WorkingHours                 HoursFile     `yaml:"working_hours"`
	Holidays                     []HolidayFile `yaml:"holidays"`
	ExcludeWeekends              bool          `yaml:"exclude_weekends"`
	ExcludeHolidays              bool          `yaml:"exclude_holidays"`
	ExtendDeadlinesAfterHolidays bool          `yaml:"extend_deadlines_after_holidays"`
}

// HolidayFile is one holiday; dates are written as 2006-01-02.
type HolidayFile struct {
	Name      string `yaml:"name"`
	Date      string `yaml:"date"`
	Recurring bool   `yaml:"recurring_yearly"`
}

// ServiceLevelFile holds the rules and escalation ladders of one service level.
type ServiceLevelFile struct {
	Rules              []RuleFile               `yaml:"rules"`
	InternalEscalation []InternalEscalationFile `yaml:"internal_escalation"`
	CustomerEscalation []CustomerEscalationFile `yaml:"customer_escalation"`
}

// RuleFile is one SLA rule. Durations use Go syntax such as "15m" or "4h".
type RuleFile struct {
	Priority     string      `yaml:"priority"`
	Response     string      `yaml:"response"`
	Resolution   string      `yaml:"resolution"`
	ServiceHours string      `yaml:"service_hours"`
	Escalation   []LevelFile `yaml:"escalation"`
}

// LevelFile is one rung of the time-based escalation ladder.
type LevelFile struct {
	After  string   `yaml:"after"`
	Notify []string `yaml:"notify"`
}

// InternalEscalationFile is a percentage-of-SLA rule.
type InternalEscalationFile struct {
	SLAPercentage int    `yaml:"sla_percentage"`
	Target        string `yaml:"target"`
	Message       string `yaml:"message"`
	Active        *bool  `yaml:"active"`
}

// CustomerEscalationFile is a customer inaction rule.
type CustomerEscalationFile struct {
	WaitingDays int    `yaml:"waiting_days"`
	Action      string `yaml:"action"`
	Message     string `yaml:"message"`
	Active      *bool  `yaml:"active"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadPolicy returns the built-in policy when path is empty, otherwise the
// policy described by the YAML file at path. The result is validated.
func LoadPolicy(path string) (sla.Policy, error) {
	if path == "" {
		policy := sla.DefaultPolicy()
		return policy, policy.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return sla.Policy{}, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return DecodePolicy(f)
}

// DecodePolicy reads a YAML policy document.
func DecodePolicy(r io.Reader) (sla.Policy, error) {
	var file PolicyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return sla.Policy{}, fmt.Errorf("decode policy file: %w", err)
	}
	policy, err := file.Policy()
	if err != nil {
		return sla.Policy{}, err
	}
	if err := policy.Validate(); err != nil {
		return sla.Policy{}, err
	}
	return policy, nil
}

// Policy converts the file into an engine policy layered over the defaults.
func (f PolicyFile) Policy() (sla.Policy, error) {
	policy := sla.DefaultPolicy()

	if len(f.PriorityMatrix) > 0 {
		matrix, err := f.matrix()
		if err != nil {
			return policy, err
		}
		policy.Matrix = matrix
	}
	if len(f.AdjustmentFactors) > 0 {
		factors, err := parseFactors(f.AdjustmentFactors)
		if err != nil {
			return policy, err
		}
		policy.Factors = factors
	}
	if f.Calendar != nil {
		cal, err := f.Calendar.config()
		if err != nil {
			return policy, err
		}
		policy.Calendar = cal
	}
	if f.ExtendedHours != nil {
		start, end, err := f.ExtendedHours.parse()
		if err != nil {
			return policy, err
		}
		policy.Extended = sla.Window{Start: start, End: end}
	}
	for name, lf := range f.ServiceLevels {
		level := domain.ServiceLevel(strings.ToLower(name))
		if !level.Valid() {
			return policy, fmt.Errorf("%w: unknown service level %q", sla.ErrInvalidInput, name)
		}
		if len(lf.Rules) > 0 {
			rules, err := lf.rules()
			if err != nil {
				return policy, fmt.Errorf("service level %s: %w", level, err)
			}
			policy.Tables[level] = rules
		}
		matrix := policy.Escalations[level]
		matrix.ServiceLevel = level
		if lf.InternalEscalation != nil {
			internal, err := lf.internal()
			if err != nil {
				return policy, fmt.Errorf("service level %s: %w", level, err)
			}
			matrix.InternalRules = internal
		}
		if lf.CustomerEscalation != nil {
			matrix.CustomerRules = lf.customer()
		}
		policy.Escalations[level] = matrix
	}
	return policy, nil
}

func (f PolicyFile) matrix() (sla.PriorityMatrix, error) {
	matrix := sla.PriorityMatrix{}
	for tech, labels := range f.PriorityMatrix {
		if len(labels) != 6 {
			return nil, fmt.Errorf("%w: priority matrix row %s needs 6 entries, got %d", sla.ErrInvalidInput, tech, len(labels))
		}
		var row [6]domain.FinalPriority
		for i, label := range labels {
			row[i] = domain.FinalPriority(label)
		}
		matrix[domain.TechnicalCriticality(tech)] = row
	}
	return matrix, nil
}

func parseFactors(values []string) (sla.FactorTable, error) {
	var table sla.FactorTable
	if len(values) != len(table) {
		return table, fmt.Errorf("%w: adjustment factors need %d entries, got %d", sla.ErrInvalidInput, len(table), len(values))
	}
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return table, fmt.Errorf("%w: adjustment factor %q: %v", sla.ErrInvalidInput, v, err)
		}
		table[i] = d
	}
	return table, nil
}

func (h HoursFile) parse() (domain.ClockTime, domain.ClockTime, error) {
	start, err := domain.ParseClockTime(h.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", sla.ErrCalendarConfigInvalid, err)
	}
	end, err := domain.ParseClockTime(h.End)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", sla.ErrCalendarConfigInvalid, err)
	}
	return start, end, nil
}

func (c CalendarFile) config() (domain.CalendarConfig, error) {
	cfg := domain.CalendarConfig{
		AlwaysOn:                     c.AlwaysOn,
		ExcludeWeekends:              c.ExcludeWeekends,
		ExcludeHolidays:              c.ExcludeHolidays,
		ExtendDeadlinesAfterHolidays: c.ExtendDeadlinesAfterHolidays,
	}
	if c.AlwaysOn {
		return cfg, nil
	}
	for _, name := range c.WorkingDays {
		wd, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return cfg, fmt.Errorf("%w: unknown weekday %q", sla.ErrCalendarConfigInvalid, name)
		}
		cfg.WorkingDays[wd] = true
	}
	start, end, err := c.WorkingHours.parse()
	if err != nil {
		return cfg, err
	}
	cfg.WorkingHoursStart, cfg.WorkingHoursEnd = start, end
	for _, h := range c.Holidays {
		date, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			return cfg, fmt.Errorf("%w: holiday %q date %q", sla.ErrCalendarConfigInvalid, h.Name, h.Date)
		}
		cfg.Holidays = append(cfg.Holidays, domain.Holiday{Name: h.Name, Date: date, Recurring: h.Recurring})
	}
	return cfg, nil
}

func (lf ServiceLevelFile) rules() (map[domain.FinalPriority]domain.SLARule, error) {
	out := make(map[domain.FinalPriority]domain.SLARule, len(lf.Rules))
	for _, rf := range lf.Rules {
		response, err := wholeMinutes(rf.Response)
		if err != nil {
			return nil, err
		}
		resolution, err := wholeMinutes(rf.Resolution)
		if err != nil {
			return nil, err
		}
		rule := domain.SLARule{
			Priority:              domain.FinalPriority(rf.Priority),
			ResponseTimeMinutes:   response,
			ResolutionTimeMinutes: resolution,
			ServiceHours:          domain.ServiceHours(rf.ServiceHours),
		}
		for i, lv := range rf.Escalation {
			after, err := wholeMinutes(lv.After)
			if err != nil {
				return nil, err
			}
			level := domain.EscalationLevel{Index: i + 1, MinutesBeforeEscalation: after}
			for _, name := range lv.Notify {
				role, err := domain.ParseRole(name)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", sla.ErrInvalidInput, err)
				}
				level.NotifyTargets = append(level.NotifyTargets, role)
			}
			rule.EscalationLevels = append(rule.EscalationLevels, level)
		}
		if !rule.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", sla.ErrInvalidInput, rf.Priority)
		}
		out[rule.Priority] = rule
	}
	return out, nil
}

func (lf ServiceLevelFile) internal() ([]domain.InternalEscalationRule, error) {
	out := make([]domain.InternalEscalationRule, 0, len(lf.InternalEscalation))
	for _, r := range lf.InternalEscalation {
		role, err := domain.ParseRole(r.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sla.ErrInvalidInput, err)
		}
		out = append(out, domain.InternalEscalationRule{
			SLAPercentage: r.SLAPercentage,
			TargetLevel:   role,
			Message:       r.Message,
			Active:        r.Active == nil || *r.Active,
		})
	}
	return out, nil
}

func (lf ServiceLevelFile) customer() []domain.CustomerEscalationRule {
	out := make([]domain.CustomerEscalationRule, 0, len(lf.CustomerEscalation))
	for _, r := range lf.CustomerEscalation {
		out = append(out, domain.CustomerEscalationRule{
			WaitingDays: r.WaitingDays,
			Action:      domain.CustomerAction(r.Action),
			Message:     r.Message,
			Active:      r.Active == nil || *r.Active,
		})
	}
	return out
}

func wholeMinutes(s string) (int, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %v", sla.ErrInvalidInput, s, err)
	}
	if d%time.Minute != 0 {
		return 0, fmt.Errorf("%w: duration %q is not a whole number of minutes", sla.ErrInvalidInput, s)
	}
	return int(d / time.Minute), nil
}
