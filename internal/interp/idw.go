package interp

import (
	"math"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// minDistance floors distances in IDW weighting so a query point sitting on
// an observation cannot divide by zero; at or below the floor the
// observation's value is returned exactly.
const minDistance = 1e-10

// idwAt computes the inverse-distance-weighted estimate at one location.
func idwAt(s domain.PointSample, lon, lat, power float64) float64 {
	var num, den float64
	for i := range s.Values {
		d := dist(lon, lat, s.Lons[i], s.Lats[i])
		if d <= minDistance {
			return s.Values[i]
		}
		w := 1 / pow(d, power)
		num += w * s.Values[i]
		den += w
	}
	return num / den
}

// idwGrid interpolates a full grid with inverse distance weighting.
func idwGrid(s domain.PointSample, g domain.GridSpec, power float64) []float64 {
	values := make([]float64, g.Cells())
	for row := range g.Rows {
		lat := g.LatAt(row)
		for col := range g.Cols {
			values[g.Index(row, col)] = idwAt(s, g.LonAt(col), lat, power)
		}
	}
	return values
}

// idwPoints predicts at arbitrary query locations.
func idwPoints(s domain.PointSample, lons, lats []float64, power float64) []float64 {
	out := make([]float64, len(lons))
	for i := range lons {
		out[i] = idwAt(s, lons[i], lats[i], power)
	}
	return out
}

// pow specializes the common power-of-two case; interpolating a 400x400
// grid calls this once per observation per cell.
func pow(d, p float64) float64 {
	if p == 2 {
		return d * d
	}
	return math.Pow(d, p)
}
