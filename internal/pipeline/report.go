package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/geostack-pipeline/internal/config"
	"github.com/couchcryptid/geostack-pipeline/internal/crossval"
	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Report is the machine-readable run summary written alongside the stacks.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`

	Settings Settings `json:"settings"`

	Units     UnitTotals        `json:"units"`
	Variables []VariableSummary `json:"variables"`
	Outcomes  []UnitRecord      `json:"outcomes"`

	Validation        []crossval.Result `json:"validation,omitempty"`
	ValidationSkipped map[string]string `json:"validation_skipped,omitempty"`

	StacksWritten int      `json:"stacks_written"`
	OutputFiles   []string `json:"output_files"`
}

// Settings snapshots the configuration that shaped the run.
type Settings struct {
	Method         string  `json:"method"`
	VariogramModel string  `json:"variogram_model"`
	CellSize       float64 `json:"cell_size"`
	BufferFraction float64 `json:"buffer_fraction"`
	MinPoints      int     `json:"min_points"`
	MaxGridDim     int     `json:"max_grid_dim"`
	CVScope        string  `json:"cv_scope,omitempty"`
	CVFolds        int     `json:"cv_folds,omitempty"`
	Workers        int     `json:"workers"`
}

// UnitTotals counts terminal unit states across the run.
type UnitTotals struct {
	Total            int `json:"total"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
	InsufficientData int `json:"insufficient_data"`
}

// VariableSummary aggregates unit outcomes per variable. A variable counts
// as succeeded when at least one of its dates produced a band.
type VariableSummary struct {
	Variable         string `json:"variable"`
	Dates            int    `json:"dates"`
	Succeeded        int    `json:"succeeded"`
	Failed           int    `json:"failed"`
	InsufficientData int    `json:"insufficient_data"`
	Ok               bool   `json:"ok"`
}

// UnitRecord is the report form of one unit outcome.
type UnitRecord struct {
	Variable string `json:"variable"`
	Date     string `json:"date"`
	State    string `json:"state"`
	Points   int    `json:"points"`
	Method   string `json:"method,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
}

func buildReport(cfg *config.Config, runID string, started, finished time.Time,
	outcomes []domain.UnitOutcome, validation []crossval.Result,
	validationSkipped map[string]string, files []string, stacks int) *Report {

	r := &Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started).String(),
		Settings: Settings{
			Method:         cfg.Interpolation.Method,
			VariogramModel: cfg.Interpolation.VariogramModel,
			CellSize:       cfg.Interpolation.CellSize,
			BufferFraction: cfg.Interpolation.BufferFraction,
			MinPoints:      cfg.Interpolation.MinPoints,
			MaxGridDim:     cfg.Interpolation.MaxGridDim,
			Workers:        cfg.Run.Workers,
		},
		Validation:        validation,
		ValidationSkipped: validationSkipped,
		StacksWritten:     stacks,
		OutputFiles:       files,
	}
	if cfg.Validation.Enabled {
		r.Settings.CVScope = cfg.Validation.Scope
		r.Settings.CVFolds = cfg.Validation.Folds
	}
	if len(validationSkipped) == 0 {
		r.ValidationSkipped = nil
	}

	perVar := map[string]*VariableSummary{}
	var order []string
	for _, o := range outcomes {
		vs, ok := perVar[o.Variable]
		if !ok {
			vs = &VariableSummary{Variable: o.Variable}
			perVar[o.Variable] = vs
			order = append(order, o.Variable)
		}
		vs.Dates++

		r.Units.Total++
		switch o.State {
		case domain.UnitSuccess:
			r.Units.Succeeded++
			vs.Succeeded++
			vs.Ok = true
		case domain.UnitFailed:
			r.Units.Failed++
			vs.Failed++
		case domain.UnitInsufficientData:
			r.Units.InsufficientData++
			vs.InsufficientData++
		}

		rec := UnitRecord{
			Variable: o.Variable,
			Date:     dateLabel(o.Date),
			State:    string(o.State),
			Points:   o.Points,
			Method:   string(o.Method),
			Reason:   o.Reason,
		}
		if o.Elapsed > 0 {
			rec.Elapsed = o.Elapsed.String()
		}
		r.Outcomes = append(r.Outcomes, rec)
	}
	for _, v := range order {
		r.Variables = append(r.Variables, *perVar[v])
	}
	return r
}

// Write persists the report as indented JSON under dir, named by run ID.
func (r *Report) Write(dir string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("run_report_%s.json", r.RunID))
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write run report: %w", err)
	}
	return path, nil
}
