package sla

import "errors"

// Engine errors. Callers match them with errors.Is; messages carry the offending values.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrRuleNotFound          = errors.New("sla rule not found")
	ErrAlreadyPaused         = errors.New("sla already paused")
	ErrNotPaused             = errors.New("sla not paused")
	ErrCalendarConfigInvalid = errors.New("calendar config invalid")
)
