package domain

import (
	"math"
	"slices"
	"time"
)

// Record is one observation row: a site, an optional sampling date, and the
// variables measured there. Variables absent from the row (missing or
// non-numeric cells) are simply not present in Values.
type Record struct {
	ID     string
	Lat    float64
	Lon    float64
	Date   time.Time // zero when the dataset carries no date column
	Values map[string]float64
}

// Dataset is a fully loaded observation file. Records are immutable after
// loading; samples are built by filtering, never by mutation.
type Dataset struct {
	Records   []Record
	Variables []string // variable columns present, in header order
}

// HasVariable reports whether the dataset carries the named variable column.
func (d *Dataset) HasVariable(name string) bool {
	return slices.Contains(d.Variables, name)
}

// Dates returns the distinct sampling dates for which the variable has at
// least one value, sorted ascending. Undated records contribute the zero
// time, so a dateless dataset yields exactly one "date".
func (d *Dataset) Dates(variable string) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, r := range d.Records {
		if _, ok := r.Values[variable]; ok {
			seen[r.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for t := range seen {
		dates = append(dates, t)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// Sample extracts the point sample for one (variable, date) unit. Records
// without a value for the variable or with a different date are excluded.
// The returned sample may be empty.
func (d *Dataset) Sample(variable string, date time.Time) PointSample {
	s := PointSample{Variable: variable, Date: date}
	for _, r := range d.Records {
		v, ok := r.Values[variable]
		if !ok || !r.Date.Equal(date) {
			continue
		}
		s.Lons = append(s.Lons, r.Lon)
		s.Lats = append(s.Lats, r.Lat)
		s.Values = append(s.Values, v)
	}
	return s
}

// PooledSample extracts all values of a variable across every date, for
// validation scopes that pool the whole record set.
func (d *Dataset) PooledSample(variable string) PointSample {
	s := PointSample{Variable: variable}
	for _, r := range d.Records {
		v, ok := r.Values[variable]
		if !ok {
			continue
		}
		s.Lons = append(s.Lons, r.Lon)
		s.Lats = append(s.Lats, r.Lat)
		s.Values = append(s.Values, v)
	}
	return s
}

// PointSample holds the observations feeding a single interpolation as
// parallel slices. Index i across Lons, Lats, and Values is one observation.
type PointSample struct {
	Variable string
	Date     time.Time
	Lons     []float64
	Lats     []float64
	Values   []float64
}

// Len returns the number of observations in the sample.
func (s PointSample) Len() int { return len(s.Values) }

// Bounds holds a geographic bounding box in degrees.
type Bounds struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// Bounds computes the tight bounding box of the sample's coordinates.
// An empty sample yields an inverted box of ±Inf.
func (s PointSample) Bounds() Bounds {
	b := Bounds{
		LonMin: math.Inf(1), LonMax: math.Inf(-1),
		LatMin: math.Inf(1), LatMax: math.Inf(-1),
	}
	for i := range s.Values {
		b.LonMin = math.Min(b.LonMin, s.Lons[i])
		b.LonMax = math.Max(b.LonMax, s.Lons[i])
		b.LatMin = math.Min(b.LatMin, s.Lats[i])
		b.LatMax = math.Max(b.LatMax, s.Lats[i])
	}
	return b
}

// Subset returns a new sample containing only the observations at the given
// indices, preserving variable and date. Used by cross-validation to split
// folds without copying the whole sample.
func (s PointSample) Subset(indices []int) PointSample {
	out := PointSample{
		Variable: s.Variable,
		Date:     s.Date,
		Lons:     make([]float64, len(indices)),
		Lats:     make([]float64, len(indices)),
		Values:   make([]float64, len(indices)),
	}
	for i, idx := range indices {
		out.Lons[i] = s.Lons[idx]
		out.Lats[i] = s.Lats[idx]
		out.Values[i] = s.Values[idx]
	}
	return out
}
