package netcdf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Info summarizes a stack file for inspection tooling.
type Info struct {
	Path         string
	StackName    string
	Bands        int
	Rows         int
	Cols         int
	CRS          string
	Transform    []float64
	RunID        string
	CreatedAt    string
	Descriptions []string
	HasVariance  bool
}

// ReadInfo opens a stack file and extracts its geometry and metadata
// without loading band data.
func ReadInfo(path string) (*Info, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stack file: %w", err)
	}
	defer nc.Close()

	info := &Info{Path: path}
	for _, name := range nc.ListVariables() {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return nil, fmt.Errorf("inspect variable %q: %w", name, err)
		}
		dims := vg.Dimensions()
		switch {
		case len(dims) == 3 && strings.HasSuffix(name, "_variance"):
			info.HasVariance = true
		case len(dims) == 3:
			info.StackName = name
		case len(dims) == 1 && name == "lat":
			info.Rows = int(vg.Len())
		case len(dims) == 1 && name == "lon":
			info.Cols = int(vg.Len())
		}
	}
	if info.StackName == "" {
		return nil, fmt.Errorf("no (band, y, x) variable in %s", path)
	}

	vg, err := nc.GetVarGetter(info.StackName)
	if err != nil {
		return nil, fmt.Errorf("inspect stack variable: %w", err)
	}
	info.Bands = int(vg.Len())

	attrs := nc.Attributes()
	if v, ok := attrs.Get("crs"); ok {
		info.CRS, _ = v.(string)
	}
	if v, ok := attrs.Get("transform"); ok {
		if tr, ok := v.([]float64); ok {
			info.Transform = tr
		}
	}
	if v, ok := attrs.Get("run_id"); ok {
		info.RunID, _ = v.(string)
	}
	if v, ok := attrs.Get("created_at"); ok {
		info.CreatedAt, _ = v.(string)
	}
	if v, ok := attrs.Get("band_descriptions"); ok {
		if s, ok := v.(string); ok && s != "" {
			info.Descriptions = strings.Split(s, "\n")
		}
	}
	return info, nil
}

// ReadBand loads one 1-based band from a stack file as a row-major float64
// slice.
func ReadBand(path string, band int) ([]float64, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stack file: %w", err)
	}
	defer nc.Close()

	var stackName string
	for _, name := range nc.ListVariables() {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return nil, err
		}
		if len(vg.Dimensions()) == 3 && !strings.HasSuffix(name, "_variance") {
			stackName = name
			break
		}
	}
	if stackName == "" {
		return nil, fmt.Errorf("no (band, y, x) variable in %s", path)
	}

	vg, err := nc.GetVarGetter(stackName)
	if err != nil {
		return nil, err
	}
	if band < 1 || int64(band) > vg.Len() {
		return nil, fmt.Errorf("band %d out of range 1..%d", band, vg.Len())
	}

	v, err := vg.GetSlice(int64(band-1), int64(band))
	if err != nil {
		return nil, fmt.Errorf("read band %d: %w", band, err)
	}
	cube, ok := v.([][][]float32)
	if !ok || len(cube) != 1 {
		return nil, fmt.Errorf("unexpected band data layout %T", v)
	}

	var out []float64
	for _, row := range cube[0] {
		for _, val := range row {
			out = append(out, float64(val))
		}
	}
	return out, nil
}

// ReadCatalog loads a catalog sidecar.
func ReadCatalog(path string) ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []domain.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return entries, nil
}
