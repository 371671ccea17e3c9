package interp

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testGrid(t *testing.T, s domain.PointSample) domain.GridSpec {
	t.Helper()
	g, err := domain.BuildGrid(s.Bounds(), 0.2, 0.05, 60)
	require.NoError(t, err)
	return g
}

func TestNewDefaults(t *testing.T) {
	e, err := New(Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodKriging, e.Method())
	assert.Equal(t, 10, e.MinPoints())
}

func TestNewRejectsUnknownOptions(t *testing.T) {
	_, err := New(Options{Method: "spline"}, testLogger())
	assert.Error(t, err)

	_, err = New(Options{Model: "cubic"}, testLogger())
	assert.Error(t, err)
}

func TestInterpolateGridKriging(t *testing.T) {
	fixed := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fixed)
	t.Cleanup(func() { domain.SetClock(nil) })

	s := scatteredSample(25, 3)
	s.Date = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	g := testGrid(t, s)

	e, err := New(Options{MinPoints: 10}, testLogger())
	require.NoError(t, err)

	surf, err := e.InterpolateGrid(s, g)
	require.NoError(t, err)

	// Surface shape matches the grid exactly.
	assert.Len(t, surf.Values, g.Cells())
	assert.Len(t, surf.Variance, g.Cells())
	assert.Equal(t, g, surf.Grid)

	for i, v := range surf.Values {
		assert.False(t, math.IsNaN(v), "cell %d is NaN", i)
		assert.GreaterOrEqual(t, surf.Variance[i], 0.0)
	}

	p := surf.Provenance
	assert.Equal(t, "pm2_5", p.Variable)
	assert.Equal(t, s.Date, p.Date)
	assert.Equal(t, domain.MethodKriging, p.Method)
	assert.Equal(t, 25, p.Points)
	assert.Equal(t, 1.0, p.ValidFraction)
	assert.Equal(t, fixed.Now(), p.CreatedAt)
}

func TestInterpolateGridDeterministic(t *testing.T) {
	s := scatteredSample(20, 4)
	g := testGrid(t, s)
	e, err := New(Options{MinPoints: 10}, testLogger())
	require.NoError(t, err)

	first, err := e.InterpolateGrid(s, g)
	require.NoError(t, err)
	second, err := e.InterpolateGrid(s, g)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Values, second.Values); diff != "" {
		t.Errorf("surfaces differ between identical runs (-first +second):\n%s", diff)
	}
}

func TestInterpolateGridInsufficientData(t *testing.T) {
	s := domain.PointSample{
		Variable: "pm2_5",
		Lons:     []float64{32.5, 32.6, 32.7},
		Lats:     []float64{0.3, 0.4, 0.5},
		Values:   []float64{40, 45, 50},
	}
	g := testGrid(t, s)

	e, err := New(Options{MinPoints: 10}, testLogger())
	require.NoError(t, err)

	_, err = e.InterpolateGrid(s, g)
	var insufficient *domain.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Points)
	assert.Equal(t, 10, insufficient.Min)
}

func TestInterpolateGridFallsBackToIDW(t *testing.T) {
	// Constant values defeat the variogram fit; the engine must still
	// produce a surface, tagged with the method actually used.
	s := domain.PointSample{
		Variable: "pm2_5",
		Lons:     []float64{32.0, 32.1, 32.2, 32.3, 32.4, 32.5, 32.6, 32.7, 32.8, 32.9},
		Lats:     []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
		Values:   []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
	}
	g := testGrid(t, s)

	e, err := New(Options{Method: domain.MethodKriging, MinPoints: 10}, testLogger())
	require.NoError(t, err)

	surf, err := e.InterpolateGrid(s, g)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodIDW, surf.Provenance.Method)
	assert.Nil(t, surf.Variance)
	for _, v := range surf.Values {
		assert.InDelta(t, 5.0, v, 1e-9)
	}
}

func TestInterpolateGridExplicitIDW(t *testing.T) {
	s := scatteredSample(15, 5)
	g := testGrid(t, s)

	e, err := New(Options{Method: domain.MethodIDW, IDWPower: 3, MinPoints: 10}, testLogger())
	require.NoError(t, err)

	surf, err := e.InterpolateGrid(s, g)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodIDW, surf.Provenance.Method)
	assert.Nil(t, surf.Variance)

	// IDW never extrapolates beyond the observed value range.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range s.Values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for _, v := range surf.Values {
		assert.GreaterOrEqual(t, v, lo-1e-9)
		assert.LessOrEqual(t, v, hi+1e-9)
	}
}

func TestPredictAtObservationReturnsExactValue(t *testing.T) {
	s := scatteredSample(12, 6)

	e, err := New(Options{Method: domain.MethodIDW, MinPoints: 10}, testLogger())
	require.NoError(t, err)

	got, err := e.PredictAt(s, []float64{s.Lons[4]}, []float64{s.Lats[4]})
	require.NoError(t, err)
	assert.Equal(t, s.Values[4], got[0])
}

func TestPredictAtNoFallback(t *testing.T) {
	// Primary-method evaluation must surface the numerical failure instead
	// of silently switching methods.
	s := domain.PointSample{
		Lons:   []float64{32.0, 32.1, 32.2, 32.3, 32.4, 32.5, 32.6, 32.7, 32.8, 32.9},
		Lats:   []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
		Values: []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
	}

	e, err := New(Options{Method: domain.MethodKriging, MinPoints: 10}, testLogger())
	require.NoError(t, err)

	_, err = e.PredictAt(s, []float64{32.45}, []float64{0.45})
	var numErr *domain.NumericalError
	assert.ErrorAs(t, err, &numErr)
}
