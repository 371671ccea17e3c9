package domain

import (
	"math"
	"time"
)

// Method identifies the interpolation algorithm that produced a surface.
type Method string

const (
	MethodKriging Method = "kriging"
	MethodIDW     Method = "idw"
)

// Provenance records where a surface came from. It travels with the surface
// into band descriptions, catalogs, and the run report, so downstream
// consumers never have to re-derive identity from file names.
type Provenance struct {
	Variable      string
	Date          time.Time // zero for undated units
	Method        Method
	Points        int     // observations used for the fit
	ValidFraction float64 // share of grid cells with a finite prediction
	CreatedAt     time.Time
}

// DateLabel formats the provenance date for descriptions and catalogs.
// Undated units are labelled "all".
func (p Provenance) DateLabel() string {
	if p.Date.IsZero() {
		return "all"
	}
	return p.Date.Format("2006-01-02")
}

// Surface is one interpolated field on a grid. Values is row-major with
// Grid.Cells() entries; cells the engine could not predict hold NaN.
// Variance is nil for methods without a variance estimate (IDW).
type Surface struct {
	Grid       GridSpec
	Values     []float64
	Variance   []float64
	Provenance Provenance
}

// ValidFraction computes the share of finite cells in values.
func ValidFraction(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	valid := 0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			valid++
		}
	}
	return float64(valid) / float64(len(values))
}

// Band is a surface prepared for raster output: geotransform, CRS, and a
// human-readable description alongside the data.
type Band struct {
	Surface
	Transform   Affine
	CRS         string
	Description string
}

// NewBand wraps a surface with its raster metadata. The description follows
// the "<variable> - <date>" convention.
func NewBand(s Surface) Band {
	return Band{
		Surface:     s,
		Transform:   s.Grid.Transform(),
		CRS:         "EPSG:4326",
		Description: s.Provenance.Variable + " - " + s.Provenance.DateLabel(),
	}
}

// CatalogEntry maps a 1-based band number to the unit it holds, mirroring
// the band order of the stack exactly.
type CatalogEntry struct {
	Band     int    `json:"band"`
	Variable string `json:"variable"`
	Date     string `json:"date"`
	Method   string `json:"method"`
	Points   int    `json:"points"`
}

// Geostack is an ordered collection of shape-identical bands plus the
// catalog describing them. A stack with no bands is valid and explicitly
// marks runs where every unit was skipped or failed.
type Geostack struct {
	Name    string
	Bands   []Band
	Catalog []CatalogEntry
}

// Empty reports whether the stack holds no bands.
func (g Geostack) Empty() bool { return len(g.Bands) == 0 }
