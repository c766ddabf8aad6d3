package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sedbatch/sedbatch/internal/model"
	"github.com/sedbatch/sedbatch/internal/observation"
)

// Algorithm names the built-in reference fitter answers to. They mirror
// the engine-selection options; a production sampler registered under
// the same name takes over transparently.
const (
	AlgorithmOptimize = "optimize"
	AlgorithmMCMC     = "emcee"
	AlgorithmNested   = "dynesty"
)

func init() {
	for _, name := range []string{AlgorithmOptimize, AlgorithmMCMC, AlgorithmNested} {
		Register(name, func() Fitter { return &referenceFitter{} })
	}
}

// referenceFitter evaluates weighted goodness statistics over the valid
// points of each modality. It exercises the bundle and mask contract end
// to end without implementing a sampling algorithm.
type referenceFitter struct{}

func (f *referenceFitter) Fit(
	ctx context.Context,
	bundle *observation.Bundle,
	m *model.PhysicalModel,
	opts Options,
) (*Result, error) {
	start := time.Now()

	if bundle == nil {
		return nil, &Error{Algorithm: opts.Algorithm, Err: errors.New("nil observation bundle")}
	}
	if bundle.Photometry == nil && bundle.Spectroscopy == nil {
		return nil, &Error{Algorithm: opts.Algorithm, Err: errors.New("bundle has no modalities")}
	}

	result := &Result{
		Algorithm:    opts.Algorithm,
		ModelVariant: m.Variant,
		FreeParams:   m.FreeCount(),
	}
	if bundle.HasRedshift {
		z := bundle.Redshift
		result.Redshift = &z
	}

	if bundle.Photometry != nil {
		stats, err := f.evaluate(ctx, bundle.Photometry, opts)
		if err != nil {
			return nil, err
		}
		result.Photometry = stats
		result.Evaluations += stats.ValidPoints
	}
	if bundle.Spectroscopy != nil {
		stats, err := f.evaluate(ctx, bundle.Spectroscopy, opts)
		if err != nil {
			return nil, err
		}
		result.Spectroscopy = stats
		result.Evaluations += stats.ValidPoints
	}

	result.FitDurationMS = durationMS(time.Since(start))
	return result, nil
}

// evaluate computes inverse-variance weighted statistics over valid
// points. Masked-out points carry zero weight by the bundle's inert
// placeholder guarantee, but are skipped outright anyway.
func (f *referenceFitter) evaluate(
	ctx context.Context,
	series *observation.Series,
	opts Options,
) (*ModalityStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Algorithm: opts.Algorithm, Err: err}
	}

	var sumW, sumWV float64
	snrs := make([]float64, 0, series.Len())
	for i, ok := range series.Mask {
		if !ok {
			continue
		}
		u := series.Uncertainties[i]
		w := 1.0 / (u * u)
		sumW += w
		sumWV += w * series.Values[i]
		snrs = append(snrs, math.Abs(series.Values[i])/u)
	}
	if sumW == 0 {
		return nil, &Error{Algorithm: opts.Algorithm, Err: errors.New("no usable points in series")}
	}

	mean := sumWV / sumW
	var chi2 float64
	for i, ok := range series.Mask {
		if !ok {
			continue
		}
		r := (series.Values[i] - mean) / series.Uncertainties[i]
		chi2 += r * r
	}

	return &ModalityStats{
		Points:       series.Len(),
		ValidPoints:  series.ValidCount(),
		WeightedMean: mean,
		ChiSquare:    chi2,
		MedianSNR:    median(snrs),
	}, nil
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
