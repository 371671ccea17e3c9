package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for failures that abort an entire run.
var (
	// ErrDatasetUnavailable reports that the input dataset could not be
	// opened or parsed at all.
	ErrDatasetUnavailable = errors.New("dataset unavailable")

	// ErrNoVariables reports that none of the requested variables exist as
	// columns in the dataset.
	ErrNoVariables = errors.New("no requested variables found in dataset")
)

// InsufficientDataError reports a unit whose sample is too small to
// interpolate. The unit is skipped, not failed.
type InsufficientDataError struct {
	Points int
	Min    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d points, need at least %d", e.Points, e.Min)
}

// NumericalError wraps a solver or fitting failure. The interpolation engine
// catches it to trigger the IDW fallback; if the fallback also fails the unit
// is marked failed with this as the reason.
type NumericalError struct {
	Stage string // "variogram fit", "kriging solve", ...
	Err   error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical failure in %s: %v", e.Stage, e.Err)
}

func (e *NumericalError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a band whose grid geometry disagrees with the
// stack it is being added to. This is always a bug upstream (all bands of a
// stack come from the same grid), so stack assembly treats it as fatal.
type ShapeMismatchError struct {
	Band     string
	WantRows int
	WantCols int
	GotRows  int
	GotCols  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("band %q shape %dx%d does not match stack shape %dx%d",
		e.Band, e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}
