// Package csvio loads observation datasets from wide CSV files: one row per
// site and date, one column per measured variable.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Options name the structural columns and the variables to extract.
type Options struct {
	IDColumn   string
	LatColumn  string
	LonColumn  string
	DateColumn string
	Variables  []string
}

// dateLayouts are tried in order. The source convention is day-first.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"02-01-2006",
}

// Load reads and filters a CSV file into a Dataset. Rows with unparseable
// or out-of-range coordinates are dropped with a warning; cells that are
// empty or non-numeric simply leave that variable absent from the record.
// A missing file or header is ErrDatasetUnavailable; a header containing
// none of the requested variables is ErrNoVariables.
func Load(path string, opts Options, logger *slog.Logger) (*domain.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDatasetUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrDatasetUnavailable, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	latIdx, ok := col[opts.LatColumn]
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", domain.ErrDatasetUnavailable, opts.LatColumn)
	}
	lonIdx, ok := col[opts.LonColumn]
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", domain.ErrDatasetUnavailable, opts.LonColumn)
	}
	idIdx, hasID := col[opts.IDColumn]
	dateIdx, hasDate := col[opts.DateColumn]

	var present []string
	for _, v := range opts.Variables {
		if _, ok := col[v]; ok {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("%w: requested %v", domain.ErrNoVariables, opts.Variables)
	}

	ds := &domain.Dataset{Variables: present}
	line := 1
	dropped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrDatasetUnavailable, line+1, err)
		}
		line++

		lat, latErr := parseFloat(field(row, latIdx))
		lon, lonErr := parseFloat(field(row, lonIdx))
		if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			dropped++
			continue
		}

		rec := domain.Record{Lat: lat, Lon: lon, Values: make(map[string]float64, len(present))}
		if hasID {
			rec.ID = field(row, idIdx)
		}
		if hasDate {
			rec.Date = parseDate(field(row, dateIdx))
		}
		for _, v := range present {
			if val, err := parseFloat(field(row, col[v])); err == nil {
				rec.Values[v] = val
			}
		}
		if len(rec.Values) == 0 {
			continue
		}
		ds.Records = append(ds.Records, rec)
	}

	if dropped > 0 {
		logger.Warn("dropped rows with invalid coordinates", "path", path, "dropped", dropped)
	}
	logger.Info("dataset loaded",
		"path", path,
		"records", len(ds.Records),
		"variables", ds.Variables,
	)
	return ds, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(s, 64)
}

// parseDate tries the day-first layouts in order; anything unparseable
// yields the zero time, collapsing the row into the undated unit.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
