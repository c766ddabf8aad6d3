// Package engine defines the fitting-engine collaborator boundary. The
// orchestrator treats a Fitter as opaque: it hands over a validated
// observation bundle plus a model and either receives a result or an
// error that the fault-isolation runner records. Real samplers plug in
// through the registry; the package ships a reference fitter that
// exercises the full bundle contract.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sedbatch/sedbatch/internal/config"
	"github.com/sedbatch/sedbatch/internal/model"
	"github.com/sedbatch/sedbatch/internal/observation"
)

// Error wraps any failure surfaced by a fitting engine so the runner can
// classify it. Job-fatal, batch-non-fatal.
type Error struct {
	Algorithm string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Algorithm, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options carries the engine selection and sampler tuning for one job.
type Options struct {
	Algorithm string
	Optimize  bool
	Sampler   config.SamplerOptions
}

// OptionsFrom derives engine options from a resolved configuration.
func OptionsFrom(o *config.Options) Options {
	return Options{
		Algorithm: o.EngineName(),
		Optimize:  o.Optimize,
		Sampler:   o.Sampler,
	}
}

// ModalityStats summarizes the fit inputs and goodness for one modality.
type ModalityStats struct {
	Points       int     `json:"points"`
	ValidPoints  int     `json:"valid_points"`
	WeightedMean float64 `json:"weighted_mean"`
	ChiSquare    float64 `json:"chi_square"`
	MedianSNR    float64 `json:"median_snr"`
}

// Result is the handle returned by a successful fit.
type Result struct {
	Algorithm     string         `json:"algorithm"`
	ModelVariant  string         `json:"model_variant"`
	FreeParams    int            `json:"free_params"`
	Redshift      *float64       `json:"redshift,omitempty"`
	Photometry    *ModalityStats `json:"photometry,omitempty"`
	Spectroscopy  *ModalityStats `json:"spectroscopy,omitempty"`
	Evaluations   int            `json:"evaluations"`
	FitDurationMS int64          `json:"fit_duration_ms"`
}

// Fitter is the narrow collaborator interface the batch machinery
// depends on. Any failure it returns (or panic it raises) is caught at
// the fault-isolation boundary.
type Fitter interface {
	Fit(ctx context.Context, bundle *observation.Bundle, m *model.PhysicalModel, opts Options) (*Result, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Fitter)
)

// Register installs a fitter factory under an algorithm name, replacing
// any previous registration.
func Register(name string, factory func() Fitter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New returns the fitter registered under name.
func New(name string) (Fitter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no fitting engine registered for %q (have %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered algorithm names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// durationMS converts to whole milliseconds for the result record.
func durationMS(d time.Duration) int64 {
	return d.Milliseconds()
}
