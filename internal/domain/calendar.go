package domain

import (
	"fmt"
	"time"
)

// ClockTime is a time of day expressed in minutes after midnight.
type ClockTime int

// ParseClockTime parses "HH:MM". "24:00" is accepted as end of day.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err == nil {
		return ClockTime(t.Hour()*60 + t.Minute()), nil
	}
	if s == "24:00" {
		return ClockTime(24 * 60), nil
	}
	return 0, fmt.Errorf("invalid clock time %q", s)
}

// MustClockTime is ParseClockTime for literals.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// On returns the instant at this clock time on the civil day of t.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(time.Duration(c) * time.Minute)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Holiday is a non-working date. Recurring holidays match month and day in any year.
type Holiday struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Recurring bool      `json:"recurring_yearly"`
}

// Matches reports whether the civil day of t is this holiday.
func (h Holiday) Matches(t time.Time) bool {
	if h.Recurring {
		return h.Date.Month() == t.Month() && h.Date.Day() == t.Day()
	}
	return h.Date.Year() == t.Year() && h.Date.Month() == t.Month() && h.Date.Day() == t.Day()
}

// CalendarConfig describes a support calendar. WorkingDays is indexed by time.Weekday (Sunday first).
type CalendarConfig struct {
	AlwaysOn                     bool      `json:"always_on"`
	WorkingDays                  [7]bool   `json:"working_days"`
	WorkingHoursStart            ClockTime `json:"working_hours_start"`
	WorkingHoursEnd              ClockTime `json:"working_hours_end"`
	Holidays                     []Holiday `json:"holidays"`
	ExcludeWeekends              bool      `json:"exclude_weekends"`
	ExcludeHolidays              bool      `json:"exclude_holidays"`
	ExtendDeadlinesAfterHolidays bool      `json:"extend_deadlines_after_holidays"`
}

// DefaultCalendar is the Monday to Friday 08:00-18:00 support calendar.
func DefaultCalendar() CalendarConfig {
	return CalendarConfig{
		WorkingDays:                  [7]bool{false, true, true, true, true, true, false},
		WorkingHoursStart:            MustClockTime("08:00"),
		WorkingHoursEnd:              MustClockTime("18:00"),
		ExcludeWeekends:              true,
		ExcludeHolidays:              true,
		ExtendDeadlinesAfterHolidays: true,
	}
}
