// Package pipeline coordinates a full interpolation run: unit fan-out per
// variable and date, cross-validation, stack assembly, and output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/geostack-pipeline/internal/config"
	"github.com/couchcryptid/geostack-pipeline/internal/crossval"
	"github.com/couchcryptid/geostack-pipeline/internal/domain"
	"github.com/couchcryptid/geostack-pipeline/internal/observability"
	"github.com/couchcryptid/geostack-pipeline/internal/stack"
)

// Interpolator produces surfaces and point predictions. Implemented by
// interp.Engine.
type Interpolator interface {
	InterpolateGrid(s domain.PointSample, g domain.GridSpec) (domain.Surface, error)
	PredictAt(train domain.PointSample, lons, lats []float64) ([]float64, error)
	MinPoints() int
	Method() domain.Method
}

// StackWriter persists assembled geostacks. Implemented by netcdf.Writer.
type StackWriter interface {
	WriteStack(gs domain.Geostack) ([]string, error)
}

// OutcomePublisher broadcasts terminal unit outcomes to external monitors.
// Implemented by kafka.Publisher; nil disables publishing.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, o domain.UnitOutcome) error
}

// combinedStackName is the multi-variable stack emitted when a run covers
// more than one variable.
const combinedStackName = "combined"

// Coordinator runs the variable x date task graph.
type Coordinator struct {
	cfg       *config.Config
	engine    Interpolator
	writer    StackWriter
	publisher OutcomePublisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	runID     string

	mu       sync.Mutex
	progress Progress
}

// Progress is the point-in-time run snapshot served at /statusz.
type Progress struct {
	RunID         string         `json:"run_id"`
	Phase         string         `json:"phase"`
	UnitsTotal    int            `json:"units_total"`
	UnitsDone     int            `json:"units_done"`
	Interpolating int            `json:"interpolating"`
	States        map[string]int `json:"states"`
}

// New creates a Coordinator. publisher may be nil.
func New(cfg *config.Config, engine Interpolator, writer StackWriter, publisher OutcomePublisher,
	metrics *observability.Metrics, logger *slog.Logger, runID string) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		engine:    engine,
		writer:    writer,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		runID:     runID,
		progress:  Progress{RunID: runID, Phase: "idle", States: map[string]int{}},
	}
}

// Status returns the current progress snapshot.
func (c *Coordinator) Status() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	states := make(map[string]int, len(c.progress.States))
	for k, v := range c.progress.States {
		states[k] = v
	}
	p := c.progress
	p.States = states
	return p
}

// unit is one (variable, date) interpolation task.
type unit struct {
	variable string
	date     time.Time
}

// Run executes the whole task graph against a loaded dataset and returns
// the run report. Unit failures are recorded, never fatal; only a dataset
// with none of the requested variables or a shape mismatch during assembly
// aborts the run.
func (c *Coordinator) Run(ctx context.Context, ds *domain.Dataset) (*Report, error) {
	started := domain.Now()
	c.metrics.RunActive.Set(1)
	defer c.metrics.RunActive.Set(0)

	variables := c.requestedVariables(ds)
	if len(variables) == 0 {
		return nil, fmt.Errorf("%w: requested %v", domain.ErrNoVariables, c.cfg.Input.Variables)
	}

	// One grid for the whole run, derived from every requested variable's
	// observations. A shared grid is what makes per-variable bands
	// stackable into the combined stack.
	grid, err := c.buildGrid(ds, variables)
	if err != nil {
		return nil, fmt.Errorf("build grid: %w", err)
	}
	c.logger.Info("grid built",
		"cols", grid.Cols, "rows", grid.Rows,
		"cell_lon", grid.CellLon, "cell_lat", grid.CellLat,
	)

	units := c.planUnits(ds, variables)
	c.setPhase("interpolating", len(units))
	c.logger.Info("run planned",
		"run_id", c.runID,
		"variables", variables,
		"units", len(units),
		"workers", c.cfg.Run.Workers,
	)

	outcomes := c.runUnits(ctx, ds, grid, units)

	var validation []crossval.Result
	validationErrs := map[string]string{}
	if c.cfg.Validation.Enabled {
		c.setPhase("validating", len(units))
		validation, validationErrs = c.validate(ctx, ds, variables, outcomes)
	}

	c.setPhase("assembling", len(units))
	files, stacks, err := c.assemble(outcomes, variables)
	if err != nil {
		return nil, err
	}

	c.setPhase("done", len(units))
	report := buildReport(c.cfg, c.runID, started, domain.Now(), outcomes, validation, validationErrs, files, stacks)
	c.logger.Info("run finished",
		"run_id", c.runID,
		"succeeded", report.Units.Succeeded,
		"failed", report.Units.Failed,
		"insufficient", report.Units.InsufficientData,
		"stacks", stacks,
		"duration", report.Duration,
	)
	return report, nil
}

// requestedVariables intersects the configured variables with the dataset's
// columns, preserving configured order.
func (c *Coordinator) requestedVariables(ds *domain.Dataset) []string {
	var out []string
	for _, v := range c.cfg.Input.Variables {
		if ds.HasVariable(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *Coordinator) buildGrid(ds *domain.Dataset, variables []string) (domain.GridSpec, error) {
	var all domain.PointSample
	for _, v := range variables {
		s := ds.PooledSample(v)
		all.Lons = append(all.Lons, s.Lons...)
		all.Lats = append(all.Lats, s.Lats...)
		all.Values = append(all.Values, s.Values...)
	}
	ic := c.cfg.Interpolation
	return domain.BuildGrid(all.Bounds(), ic.BufferFraction, ic.CellSize, ic.MaxGridDim)
}

// planUnits expands variables into (variable, date) units, capping dates
// per variable. Dates come back sorted ascending so the cap keeps the
// earliest ones deterministically.
func (c *Coordinator) planUnits(ds *domain.Dataset, variables []string) []unit {
	var units []unit
	for _, v := range variables {
		dates := ds.Dates(v)
		if len(dates) > c.cfg.Run.MaxDatesPerVariable {
			c.logger.Warn("capping dates for variable",
				"variable", v,
				"dates", len(dates),
				"cap", c.cfg.Run.MaxDatesPerVariable,
			)
			dates = dates[:c.cfg.Run.MaxDatesPerVariable]
		}
		for _, d := range dates {
			units = append(units, unit{variable: v, date: d})
		}
	}
	return units
}

// runUnits fans units out across the worker pool and gathers every terminal
// outcome. A unit failure never cancels its siblings.
func (c *Coordinator) runUnits(ctx context.Context, ds *domain.Dataset, grid domain.GridSpec, units []unit) []domain.UnitOutcome {
	outcomes := make([]domain.UnitOutcome, len(units))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Run.Workers)
	for i, u := range units {
		g.Go(func() error {
			outcomes[i] = c.runUnit(ctx, ds, grid, u)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // unit goroutines never return errors

	for _, o := range outcomes {
		c.trackOutcome(ctx, o)
	}
	return outcomes
}

// runUnit drives one unit through its state machine:
// PENDING -> INSUFFICIENT_DATA, or PENDING -> INTERPOLATING -> SUCCESS | FAILED.
func (c *Coordinator) runUnit(ctx context.Context, ds *domain.Dataset, grid domain.GridSpec, u unit) domain.UnitOutcome {
	sample := ds.Sample(u.variable, u.date)
	c.metrics.SamplePoints.Observe(float64(sample.Len()))

	if err := ctx.Err(); err != nil {
		return domain.Failed(u.variable, u.date, sample.Len(), fmt.Errorf("run cancelled: %w", err), 0)
	}

	if sample.Len() < c.engine.MinPoints() {
		err := &domain.InsufficientDataError{Points: sample.Len(), Min: c.engine.MinPoints()}
		c.logger.Info("unit skipped",
			"variable", u.variable, "date", dateLabel(u.date), "points", sample.Len(),
		)
		return domain.Skipped(u.variable, u.date, sample.Len(), err)
	}

	c.markInterpolating(1)
	defer c.markInterpolating(-1)

	start := time.Now()
	surface, err := c.engine.InterpolateGrid(sample, grid)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("unit failed",
			"variable", u.variable, "date", dateLabel(u.date), "error", err,
		)
		return domain.Failed(u.variable, u.date, sample.Len(), err, elapsed)
	}

	if surface.Provenance.Method != c.engine.Method() {
		c.metrics.FallbacksTotal.Inc()
	}
	c.metrics.UnitDuration.WithLabelValues(string(surface.Provenance.Method)).Observe(elapsed.Seconds())
	c.metrics.SurfaceCells.Observe(float64(grid.Cells()))

	c.logger.Info("unit interpolated",
		"variable", u.variable,
		"date", dateLabel(u.date),
		"method", surface.Provenance.Method,
		"points", sample.Len(),
		"elapsed", elapsed,
	)
	return domain.Succeeded(domain.NewBand(surface), elapsed)
}

// trackOutcome updates progress, metrics, and the optional outcome topic
// for one terminal outcome.
func (c *Coordinator) trackOutcome(ctx context.Context, o domain.UnitOutcome) {
	c.mu.Lock()
	c.progress.UnitsDone++
	c.progress.States[string(o.State)]++
	c.mu.Unlock()

	c.metrics.UnitsCompleted.WithLabelValues(o.Variable, string(o.State)).Inc()

	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishOutcome(ctx, o); err != nil {
		c.metrics.OutcomeEventErrs.Inc()
		c.logger.Warn("outcome publish failed",
			"variable", o.Variable, "state", o.State, "error", err,
		)
		return
	}
	c.metrics.OutcomeEventsPub.Inc()
}

// validate cross-validates each variable per the configured scope. Failures
// to validate are reported, never fatal.
func (c *Coordinator) validate(ctx context.Context, ds *domain.Dataset, variables []string, outcomes []domain.UnitOutcome) ([]crossval.Result, map[string]string) {
	samples := c.validationSamples(ds, variables, outcomes)

	results := make([]crossval.Result, len(samples))
	failed := make([]error, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Run.Workers)
	for i, s := range samples {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed[i] = fmt.Errorf("run cancelled: %w", err)
				return nil
			}
			res, err := crossval.Run(c.engine, s, c.cfg.Validation.Folds, c.cfg.Validation.Seed)
			if err != nil {
				failed[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait() //nolint:errcheck // validation goroutines never return errors

	var ok []crossval.Result
	errs := map[string]string{}
	for i := range samples {
		if failed[i] != nil {
			key := samples[i].Variable
			if !samples[i].Date.IsZero() {
				key += "|" + samples[i].Date.Format("2006-01-02")
			}
			errs[key] = failed[i].Error()
			c.logger.Warn("validation skipped",
				"variable", samples[i].Variable,
				"scope", dateLabel(samples[i].Date),
				"reason", failed[i],
			)
			continue
		}
		res := results[i]
		ok = append(ok, res)
		c.metrics.ValidationFolds.Add(float64(len(res.Folds)))
		c.metrics.ValidationRMSE.WithLabelValues(res.Variable).Observe(res.RMSEMean)
		c.logger.Info("validation complete",
			"variable", res.Variable,
			"scope", res.Scope,
			"rmse", res.RMSEMean,
			"mae", res.MAEMean,
			"r2", res.R2Mean,
			"skipped_folds", res.Skipped,
		)
	}
	return ok, errs
}

// validationSamples picks what gets validated: the pooled sample per
// variable, or every successfully interpolated unit's sample in daily
// scope. Samples below the fold count cannot be split and are left out.
func (c *Coordinator) validationSamples(ds *domain.Dataset, variables []string, outcomes []domain.UnitOutcome) []domain.PointSample {
	var samples []domain.PointSample
	if c.cfg.Validation.Scope == "daily" {
		for _, o := range outcomes {
			if o.State != domain.UnitSuccess {
				continue
			}
			s := ds.Sample(o.Variable, o.Date)
			if s.Len() >= c.cfg.Validation.Folds {
				samples = append(samples, s)
			}
		}
		return samples
	}
	for _, v := range variables {
		s := ds.PooledSample(v)
		if s.Len() >= c.cfg.Validation.Folds {
			samples = append(samples, s)
		}
	}
	return samples
}

// assemble builds and writes the per-variable stacks plus the combined
// stack. Every stack is written, including empty ones, so output is
// predictable per variable.
func (c *Coordinator) assemble(outcomes []domain.UnitOutcome, variables []string) (files []string, stacks int, err error) {
	byVar := stack.ByVariable(outcomes)

	for _, v := range variables {
		gs, err := stack.Build(v, byVar[v])
		if err != nil {
			return nil, 0, fmt.Errorf("assemble stack for %s: %w", v, err)
		}
		written, err := c.writer.WriteStack(gs)
		if err != nil {
			return nil, 0, fmt.Errorf("write stack for %s: %w", v, err)
		}
		files = append(files, written...)
		if !gs.Empty() {
			stacks++
		}
	}

	if len(variables) > 1 {
		gs, err := stack.Build(combinedStackName, stack.AllBands(outcomes))
		if err != nil {
			return nil, 0, fmt.Errorf("assemble combined stack: %w", err)
		}
		written, err := c.writer.WriteStack(gs)
		if err != nil {
			return nil, 0, fmt.Errorf("write combined stack: %w", err)
		}
		files = append(files, written...)
		if !gs.Empty() {
			stacks++
		}
	}
	return files, stacks, nil
}

func (c *Coordinator) setPhase(phase string, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.Phase = phase
	c.progress.UnitsTotal = total
}

func (c *Coordinator) markInterpolating(delta int) {
	c.mu.Lock()
	c.progress.Interpolating += delta
	c.mu.Unlock()
	c.metrics.UnitsInFlight.Add(float64(delta))
}

func dateLabel(d time.Time) string {
	if d.IsZero() {
		return "all"
	}
	return d.Format("2006-01-02")
}
