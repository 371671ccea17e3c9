package interp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// maxConditionNumber bounds the kriging system's condition estimate. Above
// it the solution is numerically meaningless (duplicate points, collinear
// layouts) and the engine falls back to IDW instead.
const maxConditionNumber = 1e12

// krigingSystem is the factored ordinary kriging matrix for one training
// sample. The (n+1)x(n+1) system augments pairwise semivariances with a
// unit-weight constraint row; the last unknown is the Lagrange multiplier.
// Factored once, then solved per prediction location.
type krigingSystem struct {
	sample domain.PointSample
	params Params
	lu     mat.LU
	n      int
}

// newKrigingSystem builds and factors the kriging matrix.
func newKrigingSystem(s domain.PointSample, params Params) (*krigingSystem, error) {
	n := s.Len()
	a := mat.NewDense(n+1, n+1, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			g := params.Eval(dist(s.Lons[i], s.Lats[i], s.Lons[j], s.Lats[j]))
			a.Set(i, j, g)
			a.Set(j, i, g)
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
	}

	ks := &krigingSystem{sample: s, params: params, n: n}
	ks.lu.Factorize(a)
	if c := ks.lu.Cond(); c > maxConditionNumber {
		return nil, &domain.NumericalError{
			Stage: "kriging solve",
			Err:   fmt.Errorf("system condition number %.3g exceeds %.0g", c, maxConditionNumber),
		}
	}
	return ks, nil
}

// predict solves the system for one target location and returns the kriged
// estimate and its prediction variance.
func (ks *krigingSystem) predict(lon, lat float64) (value, variance float64, err error) {
	b := mat.NewVecDense(ks.n+1, nil)
	for i := range ks.n {
		b.SetVec(i, ks.params.Eval(dist(lon, lat, ks.sample.Lons[i], ks.sample.Lats[i])))
	}
	b.SetVec(ks.n, 1)

	var w mat.VecDense
	if err := ks.lu.SolveVecTo(&w, false, b); err != nil {
		return 0, 0, &domain.NumericalError{Stage: "kriging solve", Err: err}
	}

	for i := range ks.n {
		value += w.AtVec(i) * ks.sample.Values[i]
		variance += w.AtVec(i) * b.AtVec(i)
	}
	variance += w.AtVec(ks.n) // Lagrange multiplier
	if variance < 0 {
		variance = 0
	}
	return value, variance, nil
}

// krigeGrid interpolates a full grid with ordinary kriging.
func krigeGrid(s domain.PointSample, g domain.GridSpec, params Params) (values, variance []float64, err error) {
	ks, err := newKrigingSystem(s, params)
	if err != nil {
		return nil, nil, err
	}
	values = make([]float64, g.Cells())
	variance = make([]float64, g.Cells())
	for row := range g.Rows {
		lat := g.LatAt(row)
		for col := range g.Cols {
			v, s2, err := ks.predict(g.LonAt(col), lat)
			if err != nil {
				return nil, nil, err
			}
			idx := g.Index(row, col)
			values[idx] = v
			variance[idx] = s2
		}
	}
	return values, variance, nil
}

// krigePoints predicts at arbitrary query locations, the mode
// cross-validation uses for held-out folds.
func krigePoints(s domain.PointSample, lons, lats []float64, params Params) ([]float64, error) {
	if len(lons) != len(lats) {
		return nil, errors.New("query coordinate slices differ in length")
	}
	ks, err := newKrigingSystem(s, params)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(lons))
	for i := range lons {
		v, _, err := ks.predict(lons[i], lats[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
