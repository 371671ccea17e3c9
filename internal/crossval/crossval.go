// Package crossval estimates interpolation accuracy with k-fold
// cross-validation over a point sample. Folds evaluate the configured
// primary method only; the production fallback would otherwise let a broken
// kriging setup hide behind IDW metrics.
package crossval

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// ErrNoValidation reports that every fold was skipped, usually because the
// sample is barely above the interpolation minimum and no training split
// reaches it.
var ErrNoValidation = errors.New("no validation possible: every fold was skipped")

// Predictor is the engine surface cross-validation needs: primary-method
// prediction at query points plus the minimum training size.
type Predictor interface {
	PredictAt(train domain.PointSample, lons, lats []float64) ([]float64, error)
	MinPoints() int
}

// FoldResult holds the error metrics of one completed fold.
type FoldResult struct {
	Fold    int     `json:"fold"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	R2      float64 `json:"r2"`
	HeldOut int     `json:"held_out"`
}

// Result aggregates fold metrics for one sample. Mean and standard
// deviation cover successful folds only; Skipped counts the rest.
type Result struct {
	Variable string       `json:"variable"`
	Scope    string       `json:"scope"`
	Points   int          `json:"points"`
	K        int          `json:"k"`
	Seed     int64        `json:"seed"`
	Folds    []FoldResult `json:"folds"`
	Skipped  int          `json:"skipped_folds"`

	RMSEMean float64 `json:"rmse_mean"`
	RMSEStd  float64 `json:"rmse_std"`
	MAEMean  float64 `json:"mae_mean"`
	MAEStd   float64 `json:"mae_std"`
	R2Mean   float64 `json:"r2_mean"`
	R2Std    float64 `json:"r2_std"`
}

// Run performs seeded k-fold cross-validation. The same sample, k, and seed
// always produce the same fold assignment and therefore the same metrics.
// Folds whose training split is below the predictor's minimum, or whose
// prediction fails numerically, are skipped and counted; if nothing
// survives the result is ErrNoValidation.
func Run(p Predictor, s domain.PointSample, k int, seed int64) (Result, error) {
	if k < 2 {
		return Result{}, fmt.Errorf("fold count must be at least 2, got %d", k)
	}
	n := s.Len()
	if n < k {
		return Result{}, fmt.Errorf("sample of %d points cannot form %d folds", n, k)
	}

	// Round-robin assignment over a seeded shuffle: fold f holds the
	// shuffled indices at positions f, f+k, f+2k, ...
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	res := Result{Variable: s.Variable, Points: n, K: k, Seed: seed}
	if s.Date.IsZero() {
		res.Scope = "pooled"
	} else {
		res.Scope = s.Date.Format("2006-01-02")
	}

	for f := range k {
		var testIdx, trainIdx []int
		for pos, idx := range perm {
			if pos%k == f {
				testIdx = append(testIdx, idx)
			} else {
				trainIdx = append(trainIdx, idx)
			}
		}

		train := s.Subset(trainIdx)
		if train.Len() < p.MinPoints() {
			res.Skipped++
			continue
		}

		test := s.Subset(testIdx)
		predicted, err := p.PredictAt(train, test.Lons, test.Lats)
		if err != nil {
			res.Skipped++
			continue
		}

		fr := foldMetrics(f, test.Values, predicted)
		res.Folds = append(res.Folds, fr)
	}

	if len(res.Folds) == 0 {
		return Result{}, fmt.Errorf("%w (%d of %d folds skipped)", ErrNoValidation, res.Skipped, k)
	}

	aggregate(&res)
	return res, nil
}

// foldMetrics computes RMSE, MAE, and R-squared for one held-out fold.
func foldMetrics(fold int, observed, predicted []float64) FoldResult {
	var sse, sae float64
	mean := stat.Mean(observed, nil)
	var sst float64
	for i := range observed {
		e := observed[i] - predicted[i]
		sse += e * e
		sae += math.Abs(e)
		d := observed[i] - mean
		sst += d * d
	}
	n := float64(len(observed))

	// A constant fold has no variance to explain: exact predictions score 1,
	// anything else scores 0.
	var r2 float64
	switch {
	case sst > 0:
		r2 = 1 - sse/sst
	case sse == 0:
		r2 = 1
	}

	return FoldResult{
		Fold:    fold,
		RMSE:    math.Sqrt(sse / n),
		MAE:     sae / n,
		R2:      r2,
		HeldOut: len(observed),
	}
}

// aggregate fills the mean/std summary from the successful folds. Standard
// deviations are population values so a single fold reports 0, not NaN.
func aggregate(res *Result) {
	rmse := make([]float64, len(res.Folds))
	mae := make([]float64, len(res.Folds))
	r2 := make([]float64, len(res.Folds))
	for i, f := range res.Folds {
		rmse[i] = f.RMSE
		mae[i] = f.MAE
		r2[i] = f.R2
	}
	res.RMSEMean = stat.Mean(rmse, nil)
	res.RMSEStd = stat.PopStdDev(rmse, nil)
	res.MAEMean = stat.Mean(mae, nil)
	res.MAEStd = stat.PopStdDev(mae, nil)
	res.R2Mean = stat.Mean(r2, nil)
	res.R2Std = stat.PopStdDev(r2, nil)
}
