package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *Dataset {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Dataset{
		Variables: []string{"pm2_5", "no2"},
		Records: []Record{
			{ID: "s1", Lat: 0.3, Lon: 32.5, Date: d1, Values: map[string]float64{"pm2_5": 41.0, "no2": 12.0}},
			{ID: "s2", Lat: 0.4, Lon: 32.6, Date: d1, Values: map[string]float64{"pm2_5": 38.5}},
			{ID: "s3", Lat: 0.5, Lon: 32.7, Date: d2, Values: map[string]float64{"pm2_5": 55.1, "no2": 9.5}},
			{ID: "s4", Lat: 0.6, Lon: 32.4, Date: d2, Values: map[string]float64{"no2": 14.2}},
		},
	}
}

func TestDatasetDates(t *testing.T) {
	ds := testDataset()

	dates := ds.Dates("pm2_5")
	require.Len(t, dates, 2)
	// Sorted ascending regardless of record order.
	assert.True(t, dates[0].Before(dates[1]))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), dates[0])

	assert.Empty(t, ds.Dates("so2"))
}

func TestDatasetDatesUndated(t *testing.T) {
	ds := &Dataset{
		Variables: []string{"rainfall"},
		Records: []Record{
			{ID: "s1", Lat: 0.3, Lon: 32.5, Values: map[string]float64{"rainfall": 3.2}},
			{ID: "s2", Lat: 0.4, Lon: 32.6, Values: map[string]float64{"rainfall": 1.1}},
		},
	}

	dates := ds.Dates("rainfall")
	require.Len(t, dates, 1)
	assert.True(t, dates[0].IsZero())

	s := ds.Sample("rainfall", time.Time{})
	assert.Equal(t, 2, s.Len())
}

func TestDatasetSample(t *testing.T) {
	ds := testDataset()
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	s := ds.Sample("pm2_5", d1)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "pm2_5", s.Variable)
	assert.Equal(t, d1, s.Date)
	assert.Equal(t, []float64{41.0, 38.5}, s.Values)
	assert.Equal(t, []float64{32.5, 32.6}, s.Lons)
	assert.Equal(t, []float64{0.3, 0.4}, s.Lats)
}

func TestDatasetPooledSample(t *testing.T) {
	ds := testDataset()

	s := ds.PooledSample("no2")
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{12.0, 9.5, 14.2}, s.Values)
}

func TestSampleBounds(t *testing.T) {
	s := PointSample{
		Lons:   []float64{32.5, 32.6, 32.4},
		Lats:   []float64{0.3, 0.5, 0.4},
		Values: []float64{1, 2, 3},
	}

	b := s.Bounds()
	assert.Equal(t, Bounds{LonMin: 32.4, LonMax: 32.6, LatMin: 0.3, LatMax: 0.5}, b)
}

func TestSampleSubset(t *testing.T) {
	s := PointSample{
		Variable: "pm2_5",
		Lons:     []float64{1, 2, 3, 4},
		Lats:     []float64{5, 6, 7, 8},
		Values:   []float64{9, 10, 11, 12},
	}

	sub := s.Subset([]int{3, 0})
	assert.Equal(t, "pm2_5", sub.Variable)
	assert.Equal(t, []float64{4, 1}, sub.Lons)
	assert.Equal(t, []float64{8, 5}, sub.Lats)
	assert.Equal(t, []float64{12, 9}, sub.Values)
}
