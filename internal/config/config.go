// Package config holds the resolved run configuration for a batch of
// fitting jobs. An Options value is built once from defaults, an optional
// YAML options file, and CLI flags, then treated as immutable: every job
// receives its own snapshot and nothing mutates the base mid-batch.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration errors raised during setup, before any job starts.
// These are process-fatal and are never routed through the job runner.
var (
	ErrNoTargets        = errors.New("no input targets: provide --source or --manifest")
	ErrNoEngineSelected = errors.New("no fitting engine selected: enable one of optimize, mcmc, nested")
	ErrUnknownModel     = errors.New("unknown model type")
)

// SamplerOptions tunes the nested-sampling engine. The values are passed
// through to the fitter untouched.
type SamplerOptions struct {
	LivePoints      int     `yaml:"live_points"`
	SampleMethod    string  `yaml:"sample_method"`
	TargetEffective int     `yaml:"target_effective"`
	DLogZ           float64 `yaml:"dlogz"`
}

// Options is the resolved configuration for one batch invocation.
type Options struct {
	// I/O
	Source         string `yaml:"source"`
	Manifest       string `yaml:"manifest"`
	OutDir         string `yaml:"out_dir"`
	LogDir         string `yaml:"log_dir"`
	LogToFile      bool   `yaml:"log_to_file"`
	Version        string `yaml:"version"`
	UseStoredMask  bool   `yaml:"use_stored_mask"`
	DispersionFile string `yaml:"dispersion_file"`

	// Data selection
	UsePhotometry         bool `yaml:"use_photometry"`
	UseSpectroscopy       bool `yaml:"use_spectroscopy"`
	FilterPhotometry      bool `yaml:"filter_photometry"`
	FilterSpectroscopy    bool `yaml:"filter_spectroscopy"`
	FitOutliersPhotometry bool `yaml:"fit_outliers_photometry"`
	FitOutliersSpec       bool `yaml:"fit_outliers_spectroscopy"`

	// Physics
	ModelType         string   `yaml:"model_type"`
	Redshift          *float64 `yaml:"redshift"`
	FixedRedshift     bool     `yaml:"fixed_redshift"`
	AgeBins           int      `yaml:"age_bins"`
	MetallicityInterp int      `yaml:"metallicity_interp"`
	Nebular           bool     `yaml:"nebular"`
	DustEmission      bool     `yaml:"dust_emission"`
	BirthCloudDust    bool     `yaml:"birth_cloud_dust"`
	AGN               bool     `yaml:"agn"`
	Smoothing         bool     `yaml:"smoothing"`

	// Engine selection
	Optimize       bool           `yaml:"optimize"`
	MCMC           bool           `yaml:"mcmc"`
	NestedSampling bool           `yaml:"nested_sampling"`
	Sampler        SamplerOptions `yaml:"sampler"`

	// Presentation
	Verbose     bool `yaml:"verbose"`
	Interactive bool `yaml:"interactive"`
}

// Defaults returns the built-in configuration. Flag absence on the CLI
// keeps these values (tri-state convention).
func Defaults() *Options {
	return &Options{
		OutDir:        "results/out",
		LogDir:        "results/log",
		Version:       "V1",
		UseStoredMask: true,

		UsePhotometry:      true,
		UseSpectroscopy:    true,
		FilterPhotometry:   true,
		FilterSpectroscopy: true,

		ModelType:         "ContinuitySFH",
		AgeBins:           8,
		MetallicityInterp: 1,
		Nebular:           true,
		DustEmission:      true,
		BirthCloudDust:    true,
		Smoothing:         true,

		NestedSampling: true,
		Sampler: SamplerOptions{
			LivePoints:      300,
			SampleMethod:    "rwalk",
			TargetEffective: 300,
			DLogZ:           0.01,
		},

		Verbose: true,
	}
}

// Clone returns a deep copy. Jobs receive clones so a per-job field such
// as Source can be set without touching the base configuration.
func (o *Options) Clone() *Options {
	cp := *o
	if o.Redshift != nil {
		z := *o.Redshift
		cp.Redshift = &z
	}
	return &cp
}

// MergeFile overlays values from a YAML options file on top of o.
// Missing file fields keep their current values.
func (o *Options) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading options file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("parsing options file %s: %w", path, err)
	}
	return nil
}

// Validate performs the setup checks that must fail before any job runs.
func (o *Options) Validate() error {
	if o.Source == "" && o.Manifest == "" {
		return ErrNoTargets
	}

	selected := 0
	for _, on := range []bool{o.Optimize, o.MCMC, o.NestedSampling} {
		if on {
			selected++
		}
	}
	if selected == 0 {
		return ErrNoEngineSelected
	}

	if o.AgeBins < 1 {
		return fmt.Errorf("age_bins must be >= 1, got %d", o.AgeBins)
	}

	if o.DispersionFile != "" {
		if _, err := os.Stat(expandUser(o.DispersionFile)); err != nil {
			return fmt.Errorf("dispersion file: %w", err)
		}
	}
	return nil
}

// EngineName maps the engine-selection flags to a registered fitter name.
// Nested sampling wins when several are enabled; optimize is a pre-step,
// not an alternative sampler.
func (o *Options) EngineName() string {
	switch {
	case o.NestedSampling:
		return "dynesty"
	case o.MCMC:
		return "emcee"
	default:
		return "optimize"
	}
}

// Targets resolves the batch enumeration: the manifest's paths in file
// order, or the single configured source. An unreadable manifest is a
// setup error.
func (o *Options) Targets() ([]string, error) {
	if o.Manifest == "" {
		if o.Source == "" {
			return nil, ErrNoTargets
		}
		return []string{expandUser(o.Source)}, nil
	}

	f, err := os.Open(expandUser(o.Manifest))
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", o.Manifest, err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, expandUser(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", o.Manifest, err)
	}
	return targets, nil
}

// DatasetID derives the dataset identifier from a source path: the base
// name without its extension.
func DatasetID(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// expandUser resolves a leading "~/" against the current home directory.
func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
