package sla

import (
	"fmt"
	"time"

	"github.com/opsdesk/sla-service/internal/domain"
)

const (
	criticalThreshold = time.Hour
	warningThreshold  = 4 * time.Hour
)

// StatusSnapshot is the evaluated state of an SLA instance at one instant.
type StatusSnapshot struct {
	Status                     domain.SLAStatus        `json:"sla_status"`
	ResponseStatus             domain.ResponseStatus   `json:"response_status"`
	ResolutionStatus           domain.ResolutionStatus `json:"resolution_status"`
	RemainingResponseMinutes   int                     `json:"remaining_response_minutes"`
	RemainingResolutionMinutes int                     `json:"remaining_resolution_minutes"`
	ResponseProgress           int                     `json:"response_progress"`
	ResolutionProgress         int                     `json:"resolution_progress"`
	Violated                   bool                    `json:"sla_violated"`
	FirstResponseDeadline      time.Time               `json:"first_response_deadline"`
	ResolutionDeadline         time.Time               `json:"resolution_deadline"`
}

// effectiveNow freezes the clock while paused.
func effectiveNow(inst *domain.SLAInstance, now time.Time) time.Time {
	if inst.IsPaused && inst.PausedAt != nil {
		return *inst.PausedAt
	}
	return now
}

// Evaluate computes the status of inst at now on cal without mutating it.
// Remaining time and progress are measured in chargeable time of cal, and the
// chargeable part of every finished pause pushes both deadlines back. It
// never fails; undeterminable states read normal.
func Evaluate(cal *Calendar, inst *domain.SLAInstance, now time.Time) StatusSnapshot {
	cal = orAlwaysOpen(cal)
	eff := effectiveNow(inst, now)
	respDeadline := shiftDeadline(cal, inst.FirstResponseDeadline, inst.PausedChargeable)
	resDeadline := shiftDeadline(cal, inst.ResolutionDeadline, inst.PausedChargeable)
	consumed := cal.ChargeableBetween(inst.CreatedAt, eff) - inst.PausedChargeable

	snap := StatusSnapshot{
		Violated:              inst.Violated,
		FirstResponseDeadline: respDeadline,
		ResolutionDeadline:    resDeadline,
	}

	switch {
	case inst.FirstResponseAt != nil:
		snap.ResponseStatus = domain.ResponseResponded
		snap.ResponseProgress = 100
	case !inst.FirstResponseDeadline.IsZero() && !eff.Before(respDeadline):
		snap.ResponseStatus = domain.ResponseOverdue
		snap.ResponseProgress = 100
	default:
		snap.ResponseStatus = domain.ResponsePending
		snap.RemainingResponseMinutes = wholeMinutes(cal.ChargeableBetween(eff, respDeadline))
		snap.ResponseProgress = progress(consumed, cal.ChargeableBetween(inst.CreatedAt, inst.FirstResponseDeadline))
	}

	var remaining time.Duration
	switch {
	case inst.ResolvedAt != nil:
		snap.ResolutionStatus = domain.ResolutionResolved
		snap.ResolutionProgress = 100
	case !inst.ResolutionDeadline.IsZero() && !eff.Before(resDeadline):
		snap.ResolutionStatus = domain.ResolutionOverdue
		snap.ResolutionProgress = 100
	default:
		snap.ResolutionStatus = domain.ResolutionPending
		remaining = cal.ChargeableBetween(eff, resDeadline)
		snap.RemainingResolutionMinutes = wholeMinutes(remaining)
		snap.ResolutionProgress = progress(consumed, cal.ChargeableBetween(inst.CreatedAt, inst.ResolutionDeadline))
	}

	switch {
	case inst.IsPaused:
		snap.Status = domain.SLAStatusPaused
	case inst.ResolvedAt != nil:
		snap.Status = domain.SLAStatusCompleted
	case snap.ResolutionStatus == domain.ResolutionOverdue || snap.ResponseStatus == domain.ResponseOverdue:
		snap.Status = domain.SLAStatusViolated
		snap.Violated = true
	case inst.ResolutionDeadline.IsZero():
		snap.Status = domain.SLAStatusNormal
	case remaining <= criticalThreshold:
		snap.Status = domain.SLAStatusCritical
	case remaining <= warningThreshold:
		snap.Status = domain.SLAStatusWarning
	default:
		snap.Status = domain.SLAStatusNormal
	}
	return snap
}

// Refresh stores the evaluated status and the sticky violation flag on inst.
// It reports whether either changed.
func Refresh(cal *Calendar, inst *domain.SLAInstance, now time.Time) (StatusSnapshot, bool) {
	snap := Evaluate(cal, inst, now)
	changed := inst.Status != snap.Status || inst.Violated != snap.Violated
	inst.Status = snap.Status
	inst.Violated = inst.Violated || snap.Violated
	snap.Violated = inst.Violated
	return snap, changed
}

// Pause stops the clock at at.
func Pause(cal *Calendar, inst *domain.SLAInstance, at time.Time) error {
	if inst.ResolvedAt != nil {
		return fmt.Errorf("%w: sla of ticket %s is already resolved", ErrInvalidInput, inst.TicketID)
	}
	if inst.IsPaused {
		return fmt.Errorf("%w: ticket %s", ErrAlreadyPaused, inst.TicketID)
	}
	if at.Before(inst.CreatedAt) {
		return fmt.Errorf("%w: pause at %s before creation", ErrInvalidInput, at.Format(time.RFC3339))
	}
	// Violations reached before the pause stay recorded.
	Refresh(cal, inst, at)
	paused := at
	inst.IsPaused = true
	inst.PausedAt = &paused
	inst.Status = domain.SLAStatusPaused
	return nil
}

// Resume restarts the clock. The wall-clock span goes to TotalPaused and its
// chargeable part on cal to PausedChargeable.
func Resume(cal *Calendar, inst *domain.SLAInstance, at time.Time) error {
	if !inst.IsPaused || inst.PausedAt == nil {
		return fmt.Errorf("%w: ticket %s", ErrNotPaused, inst.TicketID)
	}
	if at.Before(*inst.PausedAt) {
		return fmt.Errorf("%w: resume at %s before pause at %s", ErrInvalidInput,
			at.Format(time.RFC3339), inst.PausedAt.Format(time.RFC3339))
	}
	cal = orAlwaysOpen(cal)
	inst.TotalPaused += at.Sub(*inst.PausedAt)
	inst.PausedChargeable += cal.ChargeableBetween(*inst.PausedAt, at)
	inst.IsPaused = false
	inst.PausedAt = nil
	Refresh(cal, inst, at)
	return nil
}

// RecordFirstResponse stamps the first response. A late response marks the SLA violated.
func RecordFirstResponse(cal *Calendar, inst *domain.SLAInstance, at time.Time) error {
	if inst.FirstResponseAt != nil {
		return fmt.Errorf("%w: ticket %s already has a first response", ErrInvalidInput, inst.TicketID)
	}
	if at.Before(inst.CreatedAt) {
		return fmt.Errorf("%w: first response at %s before creation", ErrInvalidInput, at.Format(time.RFC3339))
	}
	cal = orAlwaysOpen(cal)
	if !inst.FirstResponseDeadline.IsZero() && at.After(shiftDeadline(cal, inst.FirstResponseDeadline, pausedUntil(cal, inst, at))) {
		inst.Violated = true
	}
	responded := at
	inst.FirstResponseAt = &responded
	Refresh(cal, inst, at)
	return nil
}

// RecordResolution completes the SLA. A paused SLA is resumed first and a
// missing first response is taken to be the resolution itself.
func RecordResolution(cal *Calendar, inst *domain.SLAInstance, at time.Time) error {
	if inst.ResolvedAt != nil {
		return fmt.Errorf("%w: ticket %s already resolved", ErrInvalidInput, inst.TicketID)
	}
	if at.Before(inst.CreatedAt) {
		return fmt.Errorf("%w: resolution at %s before creation", ErrInvalidInput, at.Format(time.RFC3339))
	}
	if inst.IsPaused && inst.PausedAt != nil && at.Before(*inst.PausedAt) {
		return fmt.Errorf("%w: resolution at %s before pause", ErrInvalidInput, at.Format(time.RFC3339))
	}
	cal = orAlwaysOpen(cal)
	if inst.IsPaused {
		if err := Resume(cal, inst, at); err != nil {
			return err
		}
	}
	if inst.FirstResponseAt == nil {
		if err := RecordFirstResponse(cal, inst, at); err != nil {
			return err
		}
	}
	if !inst.ResolutionDeadline.IsZero() && at.After(shiftDeadline(cal, inst.ResolutionDeadline, inst.PausedChargeable)) {
		inst.Violated = true
	}
	resolved := at
	inst.ResolvedAt = &resolved
	Refresh(cal, inst, at)
	return nil
}

// pausedUntil is the chargeable paused time accrued by at, including a pause still open.
func pausedUntil(cal *Calendar, inst *domain.SLAInstance, at time.Time) time.Duration {
	total := inst.PausedChargeable
	if inst.IsPaused && inst.PausedAt != nil {
		total += cal.ChargeableBetween(*inst.PausedAt, at)
	}
	return total
}

// shiftDeadline moves deadline by paused chargeable time on cal. Zero
// deadlines stay zero.
func shiftDeadline(cal *Calendar, deadline time.Time, paused time.Duration) time.Time {
	if deadline.IsZero() || paused <= 0 {
		return deadline
	}
	shifted, err := cal.AddChargeable(deadline, paused)
	if err != nil {
		return deadline.Add(paused)
	}
	return shifted
}

func orAlwaysOpen(cal *Calendar) *Calendar {
	if cal == nil {
		return AlwaysOpen()
	}
	return cal
}

func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// progress is the consumed share of window, clamped to 0-100.
func progress(consumed, window time.Duration) int {
	if window <= 0 {
		return 0
	}
	pct := int(consumed * 100 / window)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Evaluate evaluates inst on the calendar of its service hours.
func (e *Engine) Evaluate(inst *domain.SLAInstance, now time.Time) (StatusSnapshot, error) {
	cal, err := e.CalendarFor(inst.ServiceHours)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return Evaluate(cal, inst, now), nil
}

// Refresh is Refresh on the calendar of the service hours of inst.
func (e *Engine) Refresh(inst *domain.SLAInstance, now time.Time) (StatusSnapshot, bool, error) {
	cal, err := e.CalendarFor(inst.ServiceHours)
	if err != nil {
		return StatusSnapshot{}, false, err
	}
	snap, changed := Refresh(cal, inst, now)
	return snap, changed, nil
}

// Pause stops the clock of inst at at.
func (e *Engine) Pause(inst *domain.SLAInstance, at time.Time) error {
	return e.onCalendar(inst, at, Pause)
}

// Resume restarts the clock of inst, charging only the business part of the pause.
func (e *Engine) Resume(inst *domain.SLAInstance, at time.Time) error {
	return e.onCalendar(inst, at, Resume)
}

// RecordFirstResponse stamps the first response of inst.
func (e *Engine) RecordFirstResponse(inst *domain.SLAInstance, at time.Time) error {
	return e.onCalendar(inst, at, RecordFirstResponse)
}

// RecordResolution completes the SLA of inst.
func (e *Engine) RecordResolution(inst *domain.SLAInstance, at time.Time) error {
	return e.onCalendar(inst, at, RecordResolution)
}

func (e *Engine) onCalendar(inst *domain.SLAInstance, at time.Time, fn func(*Calendar, *domain.SLAInstance, time.Time) error) error {
	cal, err := e.CalendarFor(inst.ServiceHours)
	if err != nil {
		return err
	}
	return fn(cal, inst, at)
}
