package interp

import (
	"errors"
	"math"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Model names a variogram family.
type Model string

const (
	ModelLinear      Model = "linear"
	ModelSpherical   Model = "spherical"
	ModelExponential Model = "exponential"
	ModelGaussian    Model = "gaussian"
	ModelPower       Model = "power"
)

// ValidModel reports whether the name is a supported variogram family.
func ValidModel(m Model) bool {
	switch m {
	case ModelLinear, ModelSpherical, ModelExponential, ModelGaussian, ModelPower:
		return true
	}
	return false
}

// Params is a fitted variogram. Range is the distance at which the model
// levels off; Sill is the semivariance plateau above the Nugget. Exponent is
// used by the power model only.
type Params struct {
	Model    Model
	Nugget   float64
	Sill     float64
	Range    float64
	Exponent float64
}

// Eval returns the modelled semivariance at lag distance h.
func (p Params) Eval(h float64) float64 {
	if h <= 0 {
		return 0
	}
	switch p.Model {
	case ModelSpherical:
		if h >= p.Range {
			return p.Nugget + p.Sill
		}
		r := h / p.Range
		return p.Nugget + p.Sill*(1.5*r-0.5*r*r*r)
	case ModelExponential:
		return p.Nugget + p.Sill*(1-math.Exp(-3*h/p.Range))
	case ModelGaussian:
		return p.Nugget + p.Sill*(1-math.Exp(-3*h*h/(p.Range*p.Range)))
	case ModelPower:
		return p.Nugget + p.Sill*math.Pow(h, p.Exponent)
	default: // linear
		if h >= p.Range {
			return p.Nugget + p.Sill
		}
		return p.Nugget + p.Sill*h/p.Range
	}
}

// empirical variogram binning.
const (
	variogramBins = 15
	powerExponent = 1.5
)

// lagBin is one distance class of the empirical semivariogram.
type lagBin struct {
	dist  float64 // mean pair distance in the bin
	gamma float64 // mean semivariance in the bin
	n     int
}

// empiricalVariogram bins all point pairs by distance and averages the
// squared half-differences per bin. Pairs beyond half the maximum pair
// distance are discarded; long lags are sparse and drag the fit.
func empiricalVariogram(s domain.PointSample) []lagBin {
	maxDist := 0.0
	for i := range s.Values {
		for j := i + 1; j < len(s.Values); j++ {
			d := dist(s.Lons[i], s.Lats[i], s.Lons[j], s.Lats[j])
			maxDist = math.Max(maxDist, d)
		}
	}
	if maxDist == 0 {
		return nil
	}
	cutoff := maxDist / 2
	width := cutoff / variogramBins

	bins := make([]lagBin, variogramBins)
	for i := range s.Values {
		for j := i + 1; j < len(s.Values); j++ {
			d := dist(s.Lons[i], s.Lats[i], s.Lons[j], s.Lats[j])
			if d > cutoff || d == 0 {
				continue
			}
			idx := min(int(d/width), variogramBins-1)
			diff := s.Values[i] - s.Values[j]
			bins[idx].dist += d
			bins[idx].gamma += 0.5 * diff * diff
			bins[idx].n++
		}
	}

	out := bins[:0]
	for _, b := range bins {
		if b.n == 0 {
			continue
		}
		b.dist /= float64(b.n)
		b.gamma /= float64(b.n)
		out = append(out, b)
	}
	return out
}

// fitVariogram fits model parameters to the empirical semivariogram by grid
// search, minimizing the sum of squared errors across lag bins. Candidate
// sills scale the sample variance, ranges scale the maximum lag, and nuggets
// scale the chosen sill.
func fitVariogram(model Model, s domain.PointSample) (Params, error) {
	variance := sampleVariance(s.Values)
	if variance == 0 {
		return Params{}, &domain.NumericalError{
			Stage: "variogram fit",
			Err:   errors.New("sample has zero variance"),
		}
	}

	bins := empiricalVariogram(s)
	if len(bins) == 0 {
		return Params{}, &domain.NumericalError{
			Stage: "variogram fit",
			Err:   errors.New("no usable point pairs"),
		}
	}
	maxLag := bins[len(bins)-1].dist

	var (
		sillScales   = []float64{0.5, 0.75, 1.0, 1.25, 1.5}
		rangeScales  = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 2.0}
		nuggetScales = []float64{0, 0.05, 0.1, 0.2}
	)

	best := Params{Model: model, Exponent: powerExponent}
	bestSSE := math.Inf(1)
	for _, ss := range sillScales {
		for _, rs := range rangeScales {
			for _, ns := range nuggetScales {
				p := Params{
					Model:    model,
					Sill:     ss * variance,
					Range:    rs * maxLag,
					Nugget:   ns * ss * variance,
					Exponent: powerExponent,
				}
				if p.Model == ModelPower {
					// Power has no plateau; reuse the sill slot as scale,
					// normalized so gamma(maxLag) matches the candidate sill.
					p.Sill = ss * variance / math.Pow(maxLag, p.Exponent)
				}
				sse := 0.0
				for _, b := range bins {
					e := p.Eval(b.dist) - b.gamma
					sse += e * e * float64(b.n)
				}
				if sse < bestSSE {
					bestSSE = sse
					best = p
				}
			}
		}
	}

	if math.IsInf(bestSSE, 1) || math.IsNaN(bestSSE) {
		return Params{}, &domain.NumericalError{
			Stage: "variogram fit",
			Err:   errors.New("grid search found no finite fit"),
		}
	}
	return best, nil
}

// dist is the planar distance between two lon/lat points in degrees. The
// grids this engine serves span a few degrees at most, where the planar
// approximation matches the source data conventions.
func dist(lon1, lat1, lon2, lat2 float64) float64 {
	return math.Hypot(lon2-lon1, lat2-lat1)
}

func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(values)-1)
}
