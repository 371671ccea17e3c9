// Package netcdf persists geostacks as NetCDF classic files with JSON band
// catalogs alongside.
//
// Layout per stack file:
//
//	dimensions: band, y, x
//	variables:  <stack>            float32 (band, y, x)  predictions
//	            <stack>_variance   float32 (band, y, x)  kriging variance, when present
//	            lat                float64 (y)           node latitudes, north to south
//	            lon                float64 (x)           node longitudes, west to east
//	global attributes: crs, transform (6 doubles, GDAL order), run_id,
//	            created_at, band_descriptions (newline separated)
//
// The catalog sidecar ("<base>_catalog.json") maps 1-based band numbers to
// variable, date, method, and point count. An empty stack produces only a
// marker sidecar ("<base>_empty.json") so a missing raster file is
// distinguishable from a failed run.
package netcdf

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Writer persists geostacks under a fixed output directory.
type Writer struct {
	dir   string
	runID string
}

// NewWriter creates a stack writer rooted at dir, creating it if needed.
func NewWriter(dir, runID string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{dir: dir, runID: runID}, nil
}

// StackPath returns the raster file path a stack is written to.
func (w *Writer) StackPath(name string) string {
	return filepath.Join(w.dir, name+"_geostack.nc")
}

// CatalogPath returns the catalog sidecar path for a stack.
func (w *Writer) CatalogPath(name string) string {
	return filepath.Join(w.dir, name+"_geostack_catalog.json")
}

// EmptyMarkerPath returns the marker sidecar path for an empty stack.
func (w *Writer) EmptyMarkerPath(name string) string {
	return filepath.Join(w.dir, name+"_geostack_empty.json")
}

// WriteStack persists one geostack. The raster file is written to a
// temporary name and renamed into place so readers never observe a partial
// stack. Empty stacks write only the empty marker. Returns the paths of all
// files written.
func (w *Writer) WriteStack(gs domain.Geostack) ([]string, error) {
	if gs.Empty() {
		path := w.EmptyMarkerPath(gs.Name)
		if err := writeJSON(path, map[string]any{
			"stack":      gs.Name,
			"empty":      true,
			"run_id":     w.runID,
			"created_at": domain.Now().Format(time.RFC3339),
		}); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	path := w.StackPath(gs.Name)
	tmp := path + ".tmp"
	if err := writeRaster(tmp, gs, w.runID); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("finalize stack %s: %w", path, err)
	}

	catalogPath := w.CatalogPath(gs.Name)
	if err := writeJSON(catalogPath, gs.Catalog); err != nil {
		return nil, err
	}
	return []string{path, catalogPath}, nil
}

func writeRaster(path string, gs domain.Geostack, runID string) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create stack file: %w", err)
	}

	grid := gs.Bands[0].Grid
	data := bandCube(gs.Bands, func(b domain.Band) []float64 { return b.Values })

	var descriptions []string
	hasVariance := false
	for _, b := range gs.Bands {
		descriptions = append(descriptions, b.Description)
		if b.Variance != nil {
			hasVariance = true
		}
	}

	if err := cw.AddVar(gs.Name, api.Variable{
		Values:     data,
		Dimensions: []string{"band", "y", "x"},
	}); err != nil {
		cw.Close()
		return fmt.Errorf("write stack variable: %w", err)
	}

	if hasVariance {
		variance := bandCube(gs.Bands, func(b domain.Band) []float64 { return b.Variance })
		if err := cw.AddVar(gs.Name+"_variance", api.Variable{
			Values:     variance,
			Dimensions: []string{"band", "y", "x"},
		}); err != nil {
			cw.Close()
			return fmt.Errorf("write variance variable: %w", err)
		}
	}

	lats := make([]float64, grid.Rows)
	for r := range grid.Rows {
		lats[r] = grid.LatAt(r)
	}
	lons := make([]float64, grid.Cols)
	for c := range grid.Cols {
		lons[c] = grid.LonAt(c)
	}
	if err := cw.AddVar("lat", api.Variable{Values: lats, Dimensions: []string{"y"}}); err != nil {
		cw.Close()
		return fmt.Errorf("write lat coordinate: %w", err)
	}
	if err := cw.AddVar("lon", api.Variable{Values: lons, Dimensions: []string{"x"}}); err != nil {
		cw.Close()
		return fmt.Errorf("write lon coordinate: %w", err)
	}

	tr := grid.Transform()
	attrs, err := util.NewOrderedMap(
		[]string{"crs", "transform", "run_id", "created_at", "band_descriptions"},
		map[string]any{
			"crs":               gs.Bands[0].CRS,
			"transform":         tr[:],
			"run_id":            runID,
			"created_at":        domain.Now().Format(time.RFC3339),
			"band_descriptions": strings.Join(descriptions, "\n"),
		},
	)
	if err != nil {
		cw.Close()
		return fmt.Errorf("build global attributes: %w", err)
	}
	if err := cw.AddAttributes(attrs); err != nil {
		cw.Close()
		return fmt.Errorf("write global attributes: %w", err)
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close stack file: %w", err)
	}
	return nil
}

// bandCube packs per-band row-major float64 surfaces into the float32
// (band, y, x) cube NetCDF stores. Bands without the selected field (IDW
// bands have no variance) fill with NaN.
func bandCube(bands []domain.Band, field func(domain.Band) []float64) [][][]float32 {
	grid := bands[0].Grid
	cube := make([][][]float32, len(bands))
	for bi, b := range bands {
		values := field(b)
		rows := make([][]float32, grid.Rows)
		for r := range grid.Rows {
			row := make([]float32, grid.Cols)
			for c := range grid.Cols {
				if values == nil {
					row[c] = float32(math.NaN())
					continue
				}
				row[c] = float32(values[grid.Index(r, c)])
			}
			rows[r] = row
		}
		cube[bi] = rows
	}
	return cube
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
