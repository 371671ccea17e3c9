// Package interp implements the interpolation engine: ordinary kriging with
// a fitted variogram as the primary method and inverse distance weighting as
// both an explicit method and the automatic numerical fallback.
package interp

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// fallbackPower is the IDW exponent used when kriging falls back. The
// configured IDW power applies only when IDW is the selected method.
const fallbackPower = 2.0

// Options configure an Engine. Zero values select kriging with a spherical
// variogram and the usual defaults.
type Options struct {
	Method    domain.Method
	Model     Model
	MinPoints int
	IDWPower  float64
}

// Engine interpolates point samples onto grids. It holds configuration only
// and is safe for concurrent use; every call is a pure function of its
// inputs.
type Engine struct {
	method    domain.Method
	model     Model
	minPoints int
	idwPower  float64
	logger    *slog.Logger
}

// New builds an engine, applying defaults for unset options.
func New(opts Options, logger *slog.Logger) (*Engine, error) {
	if opts.Method == "" {
		opts.Method = domain.MethodKriging
	}
	if opts.Method != domain.MethodKriging && opts.Method != domain.MethodIDW {
		return nil, fmt.Errorf("unknown interpolation method %q", opts.Method)
	}
	if opts.Model == "" {
		opts.Model = ModelSpherical
	}
	if !ValidModel(opts.Model) {
		return nil, fmt.Errorf("unknown variogram model %q", opts.Model)
	}
	if opts.MinPoints <= 0 {
		opts.MinPoints = 10
	}
	if opts.IDWPower <= 0 {
		opts.IDWPower = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		method:    opts.Method,
		model:     opts.Model,
		minPoints: opts.MinPoints,
		idwPower:  opts.IDWPower,
		logger:    logger,
	}, nil
}

// MinPoints returns the engine's minimum sample size.
func (e *Engine) MinPoints() int { return e.minPoints }

// Method returns the engine's primary method.
func (e *Engine) Method() domain.Method { return e.method }

// InterpolateGrid produces the surface for one unit. Samples below the
// minimum size return InsufficientDataError without fitting anything. A
// kriging failure (singular system, unfittable variogram) falls back to IDW
// and the surface records the method actually used.
func (e *Engine) InterpolateGrid(s domain.PointSample, g domain.GridSpec) (domain.Surface, error) {
	if s.Len() < e.minPoints {
		return domain.Surface{}, &domain.InsufficientDataError{Points: s.Len(), Min: e.minPoints}
	}

	method := e.method
	var values, variance []float64
	if method == domain.MethodKriging {
		var err error
		values, variance, err = e.krige(s, g)
		var numErr *domain.NumericalError
		if errors.As(err, &numErr) {
			e.logger.Warn("kriging failed, falling back to idw",
				"variable", s.Variable,
				"date", s.Date,
				"points", s.Len(),
				"cause", numErr.Error(),
			)
			method = domain.MethodIDW
			values = idwGrid(s, g, fallbackPower)
			variance = nil
		} else if err != nil {
			return domain.Surface{}, err
		}
	} else {
		values = idwGrid(s, g, e.idwPower)
	}

	return domain.Surface{
		Grid:     g,
		Values:   values,
		Variance: variance,
		Provenance: domain.Provenance{
			Variable:      s.Variable,
			Date:          s.Date,
			Method:        method,
			Points:        s.Len(),
			ValidFraction: domain.ValidFraction(values),
			CreatedAt:     domain.Now(),
		},
	}, nil
}

// PredictAt evaluates the primary method at arbitrary locations without the
// IDW fallback. Cross-validation uses it so fold metrics describe the
// configured method rather than a silent mixture.
func (e *Engine) PredictAt(train domain.PointSample, lons, lats []float64) ([]float64, error) {
	if train.Len() < e.minPoints {
		return nil, &domain.InsufficientDataError{Points: train.Len(), Min: e.minPoints}
	}
	if e.method == domain.MethodIDW {
		return idwPoints(train, lons, lats, e.idwPower), nil
	}
	params, err := fitVariogram(e.model, train)
	if err != nil {
		return nil, err
	}
	return krigePoints(train, lons, lats, params)
}

func (e *Engine) krige(s domain.PointSample, g domain.GridSpec) ([]float64, []float64, error) {
	params, err := fitVariogram(e.model, s)
	if err != nil {
		return nil, nil, err
	}
	return krigeGrid(s, g, params)
}
