// Package stack assembles interpolated bands into ordered geostacks with
// band catalogs.
package stack

import (
	"slices"
	"strings"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Build assembles a geostack from bands in any completion order. Bands are
// sorted by date ascending, ties broken by variable name ascending, and the
// catalog is rebuilt to match the final order with 1-based band numbers.
// Every band must share the first band's grid shape and geotransform; a
// mismatch aborts assembly, it can only mean the bands came from different
// grids.
func Build(name string, bands []domain.Band) (domain.Geostack, error) {
	if len(bands) == 0 {
		return domain.Geostack{Name: name}, nil
	}

	ref := bands[0]
	for _, b := range bands[1:] {
		if !ref.Grid.SameShape(b.Grid) {
			return domain.Geostack{}, &domain.ShapeMismatchError{
				Band:     b.Description,
				WantRows: ref.Grid.Rows,
				WantCols: ref.Grid.Cols,
				GotRows:  b.Grid.Rows,
				GotCols:  b.Grid.Cols,
			}
		}
	}

	sorted := slices.Clone(bands)
	slices.SortStableFunc(sorted, func(a, b domain.Band) int {
		if c := a.Provenance.Date.Compare(b.Provenance.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Provenance.Variable, b.Provenance.Variable)
	})

	catalog := make([]domain.CatalogEntry, len(sorted))
	for i, b := range sorted {
		p := b.Provenance
		catalog[i] = domain.CatalogEntry{
			Band:     i + 1,
			Variable: p.Variable,
			Date:     p.DateLabel(),
			Method:   string(p.Method),
			Points:   p.Points,
		}
	}

	return domain.Geostack{Name: name, Bands: sorted, Catalog: catalog}, nil
}

// ByVariable groups successful outcomes' bands per variable, preserving no
// particular order; Build imposes the final one.
func ByVariable(outcomes []domain.UnitOutcome) map[string][]domain.Band {
	out := make(map[string][]domain.Band)
	for _, o := range outcomes {
		if o.State != domain.UnitSuccess || o.Band == nil {
			continue
		}
		out[o.Variable] = append(out[o.Variable], *o.Band)
	}
	return out
}

// AllBands collects every successful band across outcomes for the combined
// multi-variable stack.
func AllBands(outcomes []domain.UnitOutcome) []domain.Band {
	var bands []domain.Band
	for _, o := range outcomes {
		if o.State != domain.UnitSuccess || o.Band == nil {
			continue
		}
		bands = append(bands, *o.Band)
	}
	return bands
}
