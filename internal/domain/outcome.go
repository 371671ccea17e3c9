package domain

import (
	"time"
)

// UnitState is the lifecycle state of one (variable, date) unit.
// Transitions: PENDING -> INSUFFICIENT_DATA, or PENDING -> INTERPOLATING ->
// SUCCESS | FAILED. INSUFFICIENT_DATA, SUCCESS, and FAILED are terminal.
type UnitState string

const (
	UnitPending          UnitState = "PENDING"
	UnitInsufficientData UnitState = "INSUFFICIENT_DATA"
	UnitInterpolating    UnitState = "INTERPOLATING"
	UnitSuccess          UnitState = "SUCCESS"
	UnitFailed           UnitState = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s UnitState) Terminal() bool {
	switch s {
	case UnitInsufficientData, UnitSuccess, UnitFailed:
		return true
	}
	return false
}

// UnitOutcome is the terminal record for one unit. Identity lives on the
// struct (variable and date), never in a file name. Exactly one of Band or
// Reason is meaningful: SUCCESS carries a band, the failure states carry a
// reason string.
type UnitOutcome struct {
	Variable string        `json:"variable"`
	Date     time.Time     `json:"date,omitzero"`
	State    UnitState     `json:"state"`
	Points   int           `json:"points"`
	Method   Method        `json:"method,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`

	Band *Band `json:"-"`
}

// Succeeded builds the terminal record for a unit that produced a band.
func Succeeded(band Band, elapsed time.Duration) UnitOutcome {
	p := band.Provenance
	return UnitOutcome{
		Variable: p.Variable,
		Date:     p.Date,
		State:    UnitSuccess,
		Points:   p.Points,
		Method:   p.Method,
		Elapsed:  elapsed,
		Band:     &band,
	}
}

// Skipped builds the terminal record for a unit with too few observations.
func Skipped(variable string, date time.Time, points int, err error) UnitOutcome {
	return UnitOutcome{
		Variable: variable,
		Date:     date,
		State:    UnitInsufficientData,
		Points:   points,
		Reason:   err.Error(),
	}
}

// Failed builds the terminal record for a unit whose interpolation failed.
func Failed(variable string, date time.Time, points int, err error, elapsed time.Duration) UnitOutcome {
	return UnitOutcome{
		Variable: variable,
		Date:     date,
		State:    UnitFailed,
		Points:   points,
		Reason:   err.Error(),
		Elapsed:  elapsed,
	}
}
