package interp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

func TestParamsEval(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		h    float64
		want float64
	}{
		{"zero lag is zero", Params{Model: ModelSpherical, Nugget: 0.5, Sill: 2, Range: 1}, 0, 0},
		{"spherical at range", Params{Model: ModelSpherical, Nugget: 0.5, Sill: 2, Range: 1}, 1, 2.5},
		{"spherical beyond range", Params{Model: ModelSpherical, Nugget: 0.5, Sill: 2, Range: 1}, 3, 2.5},
		{"spherical midpoint", Params{Model: ModelSpherical, Sill: 1, Range: 1}, 0.5, 1.5*0.5 - 0.5*0.125},
		{"linear at range", Params{Model: ModelLinear, Sill: 4, Range: 2}, 2, 4},
		{"linear midpoint", Params{Model: ModelLinear, Sill: 4, Range: 2}, 1, 2},
		{"power", Params{Model: ModelPower, Sill: 2, Exponent: 1}, 3, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.p.Eval(tt.h), 1e-12)
		})
	}

	t.Run("exponential approaches sill", func(t *testing.T) {
		p := Params{Model: ModelExponential, Sill: 2, Range: 1}
		assert.InDelta(t, 2, p.Eval(10), 1e-9)
		assert.Less(t, p.Eval(0.5), 2.0)
	})

	t.Run("gaussian is flat near origin", func(t *testing.T) {
		p := Params{Model: ModelGaussian, Sill: 2, Range: 1}
		assert.Less(t, p.Eval(0.05), 0.02)
		assert.InDelta(t, 2, p.Eval(10), 1e-9)
	})
}

func TestValidModel(t *testing.T) {
	for _, m := range []Model{ModelLinear, ModelSpherical, ModelExponential, ModelGaussian, ModelPower} {
		assert.True(t, ValidModel(m))
	}
	assert.False(t, ValidModel("cubic"))
}

// scatteredSample generates a reproducible spatially correlated sample.
func scatteredSample(n int, seed int64) domain.PointSample {
	rng := rand.New(rand.NewSource(seed))
	s := domain.PointSample{Variable: "pm2_5"}
	for range n {
		lon := 32 + rng.Float64()
		lat := rng.Float64()
		s.Lons = append(s.Lons, lon)
		s.Lats = append(s.Lats, lat)
		// Smooth trend plus noise so the semivariogram has structure.
		s.Values = append(s.Values, 40+10*(lon-32)+5*lat+rng.NormFloat64())
	}
	return s
}

func TestFitVariogram(t *testing.T) {
	s := scatteredSample(30, 1)

	for _, model := range []Model{ModelLinear, ModelSpherical, ModelExponential, ModelGaussian, ModelPower} {
		t.Run(string(model), func(t *testing.T) {
			p, err := fitVariogram(model, s)
			require.NoError(t, err)
			assert.Equal(t, model, p.Model)
			assert.Greater(t, p.Sill, 0.0)
			assert.Greater(t, p.Range, 0.0)
			assert.GreaterOrEqual(t, p.Nugget, 0.0)
		})
	}
}

func TestFitVariogramZeroVariance(t *testing.T) {
	s := domain.PointSample{
		Lons:   []float64{1, 2, 3, 4, 5},
		Lats:   []float64{1, 2, 3, 4, 5},
		Values: []float64{7, 7, 7, 7, 7},
	}

	_, err := fitVariogram(ModelSpherical, s)
	var numErr *domain.NumericalError
	require.ErrorAs(t, err, &numErr)
	assert.Equal(t, "variogram fit", numErr.Stage)
}

func TestEmpiricalVariogramIncreasesWithLag(t *testing.T) {
	s := scatteredSample(50, 2)
	bins := empiricalVariogram(s)
	require.NotEmpty(t, bins)

	// A trending field yields higher semivariance at the longest lags than
	// at the shortest.
	assert.Greater(t, bins[len(bins)-1].gamma, bins[0].gamma)
}
