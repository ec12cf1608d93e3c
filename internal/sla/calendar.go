package sla

import (
	"fmt"
	"time"

	"github.com/opsdesk/sla-service/internal/domain"
)

// maxScanDays bounds the search for the next business window.
const maxScanDays = 3 * 366

// Calendar answers business-hour questions for one calendar configuration.
// Instants are treated as civil time in their own location; no conversion happens.
type Calendar struct {
	cfg domain.CalendarConfig
}

// ValidateCalendar rejects configurations that can never open a business window.
func ValidateCalendar(cfg domain.CalendarConfig) error {
	if cfg.AlwaysOn {
		return nil
	}
	if cfg.WorkingHoursStart < 0 || cfg.WorkingHoursEnd > 24*60 {
		return fmt.Errorf("%w: working hours %s-%s outside the day", ErrCalendarConfigInvalid, cfg.WorkingHoursStart, cfg.WorkingHoursEnd)
	}
	if cfg.WorkingHoursStart >= cfg.WorkingHoursEnd {
		return fmt.Errorf("%w: working hours start %s not before end %s", ErrCalendarConfigInvalid, cfg.WorkingHoursStart, cfg.WorkingHoursEnd)
	}
	for wd, enabled := range cfg.WorkingDays {
		if enabled && !(cfg.ExcludeWeekends && isWeekend(time.Weekday(wd))) {
			return nil
		}
	}
	return fmt.Errorf("%w: no working day enabled", ErrCalendarConfigInvalid)
}

// NewCalendar validates cfg and wraps it.
func NewCalendar(cfg domain.CalendarConfig) (*Calendar, error) {
	if err := ValidateCalendar(cfg); err != nil {
		return nil, err
	}
	return &Calendar{cfg: cfg}, nil
}

// AlwaysOpen returns a calendar that charges every instant.
func AlwaysOpen() *Calendar {
	return &Calendar{cfg: domain.CalendarConfig{AlwaysOn: true}}
}

// Config returns the wrapped configuration.
func (c *Calendar) Config() domain.CalendarConfig {
	return c.cfg
}

// IsHoliday reports whether the civil day of t is a configured holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	for _, h := range c.cfg.Holidays {
		if h.Matches(t) {
			return true
		}
	}
	return false
}

// IsBusinessDay reports whether the civil day of t opens a business window.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if c.cfg.AlwaysOn {
		return true
	}
	wd := t.Weekday()
	if c.cfg.ExcludeWeekends && isWeekend(wd) {
		return false
	}
	if !c.cfg.WorkingDays[wd] {
		return false
	}
	if c.cfg.ExcludeHolidays && c.IsHoliday(t) {
		return false
	}
	return true
}

// IsBusinessHour reports whether t falls inside [start, end) of a business day.
func (c *Calendar) IsBusinessHour(t time.Time) bool {
	if c.cfg.AlwaysOn {
		return true
	}
	if !c.IsBusinessDay(t) {
		return false
	}
	return !t.Before(c.cfg.WorkingHoursStart.On(t)) && t.Before(c.cfg.WorkingHoursEnd.On(t))
}

// ChargeableBetween sums the business time between start and end.
func (c *Calendar) ChargeableBetween(start, end time.Time) time.Duration {
	if !end.After(start) {
		return 0
	}
	if c.cfg.AlwaysOn {
		return end.Sub(start)
	}
	var total time.Duration
	for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		if !c.IsBusinessDay(day) {
			continue
		}
		lo := laterOf(c.cfg.WorkingHoursStart.On(day), start)
		hi := earlierOf(c.cfg.WorkingHoursEnd.On(day), end)
		if hi.After(lo) {
			total += hi.Sub(lo)
		}
	}
	return total
}

// ChargeableMinutesBetween is ChargeableBetween in whole minutes. It is never negative.
func (c *Calendar) ChargeableMinutesBetween(start, end time.Time) int {
	return int(c.ChargeableBetween(start, end) / time.Minute)
}

// NextBusinessInstant returns t when it is inside business hours, otherwise
// the start of the next business window.
func (c *Calendar) NextBusinessInstant(t time.Time) (time.Time, error) {
	if c.IsBusinessHour(t) {
		return t, nil
	}
	day := startOfDay(t)
	for i := 0; i < maxScanDays; i++ {
		if c.IsBusinessDay(day) {
			if open := c.cfg.WorkingHoursStart.On(day); !open.Before(t) {
				return open, nil
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return t, fmt.Errorf("%w: no business window within %d days of %s", ErrCalendarConfigInvalid, maxScanDays, t.Format(time.RFC3339))
}

// AddChargeable returns the instant at which d of business time has elapsed since start.
func (c *Calendar) AddChargeable(start time.Time, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return start, nil
	}
	if c.cfg.AlwaysOn {
		return start.Add(d), nil
	}
	cur := start
	remaining := d
	for {
		open, err := c.NextBusinessInstant(cur)
		if err != nil {
			return start, err
		}
		closing := c.cfg.WorkingHoursEnd.On(open)
		available := closing.Sub(open)
		if remaining <= available {
			return open.Add(remaining), nil
		}
		remaining -= available
		cur = closing
	}
}

// ExtendPastClosedDay moves an instant that lands on a closed day or a holiday
// to the next business window when the calendar asks for it. Instants on open
// days are left alone, even outside working hours.
func (c *Calendar) ExtendPastClosedDay(t time.Time) (time.Time, error) {
	if c.cfg.AlwaysOn || !c.cfg.ExtendDeadlinesAfterHolidays {
		return t, nil
	}
	cur := t
	for i := 0; i < maxScanDays; i++ {
		if c.IsBusinessDay(cur) && !c.IsHoliday(cur) {
			return cur, nil
		}
		next, err := c.NextBusinessInstant(startOfDay(cur).AddDate(0, 0, 1))
		if err != nil {
			return t, err
		}
		cur = next
	}
	return t, fmt.Errorf("%w: no open day within %d days of %s", ErrCalendarConfigInvalid, maxScanDays, t.Format(time.RFC3339))
}

func isWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
