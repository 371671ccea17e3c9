package netcdf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
	"github.com/couchcryptid/geostack-pipeline/internal/stack"
)

func testBand(t *testing.T, variable, date string, fill float64, withVariance bool) domain.Band {
	t.Helper()
	g, err := domain.BuildGrid(domain.Bounds{LonMin: 32, LonMax: 32.5, LatMin: 0, LatMax: 0.5}, 0, 0.1, 400)
	require.NoError(t, err)

	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	values := make([]float64, g.Cells())
	for i := range values {
		values[i] = fill + float64(i)
	}
	var variance []float64
	if withVariance {
		variance = make([]float64, g.Cells())
		for i := range variance {
			variance[i] = 0.5
		}
	}
	return domain.NewBand(domain.Surface{
		Grid:     g,
		Values:   values,
		Variance: variance,
		Provenance: domain.Provenance{
			Variable: variable,
			Date:     d,
			Method:   domain.MethodKriging,
			Points:   15,
		},
	})
}

func TestWriteAndReadStack(t *testing.T) {
	bands := []domain.Band{
		testBand(t, "pm2_5", "2024-01-02", 100, true),
		testBand(t, "pm2_5", "2024-01-01", 200, true),
	}
	gs, err := stack.Build("pm2_5", bands)
	require.NoError(t, err)

	w, err := NewWriter(t.TempDir(), "a1b2c3d4")
	require.NoError(t, err)

	paths, err := w.WriteStack(gs)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	info, err := ReadInfo(w.StackPath("pm2_5"))
	require.NoError(t, err)
	assert.Equal(t, "pm2_5", info.StackName)
	assert.Equal(t, 2, info.Bands)
	assert.Equal(t, gs.Bands[0].Grid.Rows, info.Rows)
	assert.Equal(t, gs.Bands[0].Grid.Cols, info.Cols)
	assert.Equal(t, "EPSG:4326", info.CRS)
	assert.Equal(t, "a1b2c3d4", info.RunID)
	assert.True(t, info.HasVariance)
	require.Len(t, info.Transform, 6)

	tr := gs.Bands[0].Transform
	assert.Equal(t, tr[:], info.Transform)

	// Build sorted the bands date-ascending; descriptions must follow.
	assert.Equal(t, []string{"pm2_5 - 2024-01-01", "pm2_5 - 2024-01-02"}, info.Descriptions)

	// Band 1 is the earlier date, which was written second in the input.
	values, err := ReadBand(w.StackPath("pm2_5"), 1)
	require.NoError(t, err)
	require.Len(t, values, gs.Bands[0].Grid.Cells())
	assert.InDelta(t, 200, values[0], 1e-3)

	catalog, err := ReadCatalog(w.CatalogPath("pm2_5"))
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, 1, catalog[0].Band)
	assert.Equal(t, "2024-01-01", catalog[0].Date)
	assert.Equal(t, "kriging", catalog[0].Method)
}

func TestReadBandOutOfRange(t *testing.T) {
	gs, err := stack.Build("pm2_5", []domain.Band{testBand(t, "pm2_5", "2024-01-01", 1, false)})
	require.NoError(t, err)

	w, err := NewWriter(t.TempDir(), "run")
	require.NoError(t, err)
	_, err = w.WriteStack(gs)
	require.NoError(t, err)

	_, err = ReadBand(w.StackPath("pm2_5"), 2)
	assert.Error(t, err)
}

func TestWriteEmptyStack(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "a1b2c3d4")
	require.NoError(t, err)

	paths, err := w.WriteStack(domain.Geostack{Name: "no2"})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, w.EmptyMarkerPath("no2"), paths[0])

	// No raster file for an empty stack, only the marker.
	_, err = os.Stat(w.StackPath("no2"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"empty": true`)
}
