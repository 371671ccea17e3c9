package domain

import (
	"fmt"
	"math"
)

// degenerateHalfSpan widens a zero-extent axis (all points share a
// coordinate) by this many degrees on each side before buffering, so the
// grid always has positive area.
const degenerateHalfSpan = 0.01

// GridSpec describes a regular lon/lat node grid. Node (row, col) sits at
// (LatMax - row*CellLat, LonMin + col*CellLon); row 0 is the northernmost
// row. CellLon and CellLat are the effective spacings after clamping and may
// differ from the requested cell size.
type GridSpec struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
	Cols, Rows     int
	CellLon        float64
	CellLat        float64
}

// BuildGrid derives the grid covering a sample's bounding box. The box is
// padded by buffer times each axis range, node counts come from the cell
// size via ceil(range/cell)+1, and each axis is clamped to maxDim nodes with
// the spacing recomputed so the padded extent is preserved exactly.
func BuildGrid(b Bounds, buffer, cell float64, maxDim int) (GridSpec, error) {
	if cell <= 0 {
		return GridSpec{}, fmt.Errorf("cell size must be positive, got %g", cell)
	}
	if buffer < 0 {
		return GridSpec{}, fmt.Errorf("buffer fraction must be non-negative, got %g", buffer)
	}
	if maxDim < 2 {
		return GridSpec{}, fmt.Errorf("max grid dimension must be at least 2, got %d", maxDim)
	}
	if b.LonMin > b.LonMax || b.LatMin > b.LatMax {
		return GridSpec{}, fmt.Errorf("inverted bounds: %+v", b)
	}

	lonMin, lonMax := padAxis(b.LonMin, b.LonMax, buffer)
	latMin, latMax := padAxis(b.LatMin, b.LatMax, buffer)

	cols, cellLon := axisNodes(lonMax-lonMin, cell, maxDim)
	rows, cellLat := axisNodes(latMax-latMin, cell, maxDim)

	return GridSpec{
		LonMin: lonMin, LonMax: lonMax,
		LatMin: latMin, LatMax: latMax,
		Cols: cols, Rows: rows,
		CellLon: cellLon, CellLat: cellLat,
	}, nil
}

// padAxis widens a degenerate axis, then applies the buffer fraction.
func padAxis(min, max, buffer float64) (float64, float64) {
	if max-min == 0 {
		min -= degenerateHalfSpan
		max += degenerateHalfSpan
	}
	pad := buffer * (max - min)
	return min - pad, max + pad
}

// axisNodes converts an axis extent into a node count and effective spacing.
func axisNodes(extent, cell float64, maxDim int) (int, float64) {
	n := int(math.Ceil(extent/cell)) + 1
	if n > maxDim {
		n = maxDim
	}
	if n < 2 {
		n = 2
	}
	return n, extent / float64(n-1)
}

// LonAt returns the longitude of grid column col.
func (g GridSpec) LonAt(col int) float64 { return g.LonMin + float64(col)*g.CellLon }

// LatAt returns the latitude of grid row row. Row 0 is the northern edge.
func (g GridSpec) LatAt(row int) float64 { return g.LatMax - float64(row)*g.CellLat }

// Cells returns the total node count, Rows*Cols.
func (g GridSpec) Cells() int { return g.Rows * g.Cols }

// Index maps (row, col) to the row-major slice offset.
func (g GridSpec) Index(row, col int) int { return row*g.Cols + col }

// Affine is a six-element geotransform in GDAL order:
// origin lon, lon spacing, 0, origin lat, 0, negative lat spacing.
type Affine [6]float64

// Transform returns the north-up geotransform for the grid.
func (g GridSpec) Transform() Affine {
	return Affine{g.LonMin, g.CellLon, 0, g.LatMax, 0, -g.CellLat}
}

// SameShape reports whether two grids have identical dimensions and
// geotransforms, the requirement for stacking their surfaces.
func (g GridSpec) SameShape(other GridSpec) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols && g.Transform() == other.Transform()
}
