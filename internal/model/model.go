// Package model assembles the physical model description for a fitting
// job: an ordered parameter table selected from a closed set of named
// variants. Adding a variant extends the set behind Build; the interface
// never changes.
package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/sedbatch/sedbatch/internal/config"
)

// Variant names accepted as ModelType.
const (
	VariantContinuitySFH = "ContinuitySFH"
	VariantParametricSFH = "ParametricSFH"
)

// Prior describes the prior distribution attached to a free parameter.
type Prior struct {
	Kind  string  `json:"kind"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
	Mean  float64 `json:"mean,omitempty"`
	Sigma float64 `json:"sigma,omitempty"`
}

func topHat(min, max float64) *Prior {
	return &Prior{Kind: "tophat", Min: min, Max: max}
}

func clippedNormal(mean, sigma, min, max float64) *Prior {
	return &Prior{Kind: "clipped_normal", Mean: mean, Sigma: sigma, Min: min, Max: max}
}

func normal(mean, sigma float64) *Prior {
	return &Prior{Kind: "normal", Mean: mean, Sigma: sigma}
}

// Parameter is one row of the model table.
type Parameter struct {
	Name      string    `json:"name"`
	Free      bool      `json:"free"`
	Init      []float64 `json:"init"`
	Units     string    `json:"units,omitempty"`
	Prior     *Prior    `json:"prior,omitempty"`
	DependsOn string    `json:"depends_on,omitempty"`
}

// PhysicalModel is the assembled parameter table for one variant. Order
// is preserved so diagnostics are stable between runs.
type PhysicalModel struct {
	Variant string

	params []Parameter
	index  map[string]int
}

func newModel(variant string) *PhysicalModel {
	return &PhysicalModel{Variant: variant, index: make(map[string]int)}
}

// set appends a parameter, replacing a previous definition of the same
// name in place.
func (m *PhysicalModel) set(p Parameter) {
	if i, ok := m.index[p.Name]; ok {
		m.params[i] = p
		return
	}
	m.index[p.Name] = len(m.params)
	m.params = append(m.params, p)
}

// Get returns a parameter by name.
func (m *PhysicalModel) Get(name string) (Parameter, bool) {
	i, ok := m.index[name]
	if !ok {
		return Parameter{}, false
	}
	return m.params[i], true
}

// Has reports whether the named parameter is defined.
func (m *PhysicalModel) Has(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Parameters returns the table in definition order.
func (m *PhysicalModel) Parameters() []Parameter { return m.params }

// FreeCount returns the number of free parameters.
func (m *PhysicalModel) FreeCount() int {
	n := 0
	for _, p := range m.params {
		if p.Free {
			n++
		}
	}
	return n
}

// builders is the closed set of model variants.
var builders = map[string]func(*config.Options, float64) *PhysicalModel{
	VariantContinuitySFH: buildContinuity,
	VariantParametricSFH: buildParametric,
}

// IsKnownVariant reports whether name selects a buildable model variant.
// Setup code uses it to reject a bad ModelType before any job starts.
func IsKnownVariant(name string) bool {
	_, ok := builders[name]
	return ok
}

// Variants returns the known variant names, sorted.
func Variants() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build assembles the model for the configured variant. redshift is the
// resolved value for the dataset (zero when unknown); it seeds the zred
// parameter and the age-bin adjustment.
func Build(o *config.Options, redshift float64) (*PhysicalModel, error) {
	build, ok := builders[o.ModelType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownModel, o.ModelType)
	}
	return build(o, redshift), nil
}

// ageOfUniverseGyr is the approximate age used to bound star-formation
// history bins.
const ageOfUniverseGyr = 13.7

func buildContinuity(o *config.Options, z float64) *PhysicalModel {
	m := newModel(VariantContinuitySFH)

	edges := continuityAgeBins(o.AgeBins)
	m.set(Parameter{Name: "agebins", Init: edges, Units: "log(yr)"})
	m.set(Parameter{
		Name: "logsfr_ratios", Free: true,
		Init:  make([]float64, o.AgeBins-1),
		Prior: normal(0, 0.3),
	})
	m.set(Parameter{
		Name: "logmass", Free: true, Init: []float64{10.5},
		Units: "solar masses formed", Prior: topHat(6.0, 13.0),
	})
	m.set(Parameter{
		Name: "mass", Init: []float64{1e6},
		Units: "solar masses formed", DependsOn: "logsfr_ratios_to_masses",
	})

	setRedshift(m, o, z)
	setPhysicalParams(m, o)
	setDust(m, o)
	if o.Nebular {
		setNebular(m)
	}
	if o.UseSpectroscopy {
		setSpectralCalibration(m, o)
	}
	setOutliers(m, o)
	return m
}

func buildParametric(o *config.Options, z float64) *PhysicalModel {
	m := newModel(VariantParametricSFH)

	m.set(Parameter{
		Name: "tau", Free: true, Init: []float64{1.0},
		Units: "Gyr", Prior: topHat(0.1, 30.0),
	})
	m.set(Parameter{
		Name: "tage", Free: true, Init: []float64{5.0},
		Units: "Gyr", Prior: topHat(0.001, ageOfUniverseGyr),
	})
	m.set(Parameter{
		Name: "logmass", Free: true, Init: []float64{10.5},
		Units: "solar masses formed", Prior: topHat(6.0, 13.0),
	})

	setRedshift(m, o, z)
	setPhysicalParams(m, o)
	setDust(m, o)
	if o.Nebular {
		setNebular(m)
	}
	if o.UseSpectroscopy {
		setSpectralCalibration(m, o)
	}
	setOutliers(m, o)
	return m
}

// continuityAgeBins returns nbins+1 bin edges in log years: the
// youngest bin edge pair is fixed, the remaining edges are spaced
// evenly from 100 Myr up to the age of the universe.
func continuityAgeBins(nbins int) []float64 {
	tuniv := math.Log10(ageOfUniverseGyr * 1e9)
	edges := make([]float64, 0, nbins+1)
	edges = append(edges, 0, 7.47)
	if nbins < 2 {
		return edges[:nbins+1]
	}
	// nbins-1 further edges ending at tuniv.
	rest := nbins - 1
	if rest == 1 {
		return append(edges, tuniv)
	}
	step := (tuniv - 8.0) / float64(rest-1)
	for i := 0; i < rest; i++ {
		edges = append(edges, 8.0+float64(i)*step)
	}
	return edges
}

func setRedshift(m *PhysicalModel, o *config.Options, z float64) {
	if o.FixedRedshift {
		m.set(Parameter{Name: "zred", Init: []float64{z}, Units: "redshift"})
		return
	}
	m.set(Parameter{
		Name: "zred", Free: true, Init: []float64{z},
		Units: "redshift",
		Prior: clippedNormal(z, 0.05, z-0.5, z+0.5),
	})
}

func setPhysicalParams(m *PhysicalModel, o *config.Options) {
	m.set(Parameter{
		Name: "logzsol", Free: true, Init: []float64{-0.3},
		Units: "log(Z/Zsun)", Prior: topHat(-2.0, 0.5),
	})
	m.set(Parameter{Name: "imf_type", Init: []float64{1}, Units: "library index"})
	m.set(Parameter{Name: "zcontinuous", Init: []float64{float64(o.MetallicityInterp)}})
}

func setDust(m *PhysicalModel, o *config.Options) {
	m.set(Parameter{Name: "dust_type", Init: []float64{4}, Units: "library index"})
	m.set(Parameter{
		Name: "dust2", Free: true, Init: []float64{0.5},
		Units: "optical depth at 5500AA", Prior: topHat(0.0, 4.0),
	})
	m.set(Parameter{
		Name: "dust_index", Free: true, Init: []float64{0.0},
		Prior: clippedNormal(0.0, 0.3, -1.5, 0.4),
	})

	if o.BirthCloudDust {
		m.set(Parameter{Name: "dust1", Init: []float64{0.0}, DependsOn: "dustratio_to_dust1"})
		m.set(Parameter{
			Name: "dust1_fraction", Free: true, Init: []float64{1.0},
			Prior: clippedNormal(1.0, 0.3, 0.0, 2.0),
		})
	}
	if o.DustEmission {
		m.set(Parameter{
			Name: "duste_gamma", Free: true, Init: []float64{0.01},
			Prior: topHat(0.0, 1.0),
		})
		m.set(Parameter{
			Name: "duste_qpah", Free: true, Init: []float64{3.5},
			Prior: topHat(0.5, 10.0),
		})
		m.set(Parameter{
			Name: "duste_umin", Free: true, Init: []float64{1.0},
			Prior: topHat(0.1, 25.0),
		})
	}
	if o.AGN {
		m.set(Parameter{
			Name: "fagn", Free: true, Init: []float64{0.01},
			Prior: topHat(0.0, 3.0),
		})
		m.set(Parameter{
			Name: "agn_tau", Free: true, Init: []float64{10.0},
			Prior: topHat(5.0, 150.0),
		})
	}
}

func setNebular(m *PhysicalModel) {
	m.set(Parameter{Name: "add_neb_emission", Init: []float64{1}})
	m.set(Parameter{Name: "nebemlineinspec", Init: []float64{0}})
	m.set(Parameter{
		Name: "gas_logz", Free: true, Init: []float64{0.0},
		Prior: topHat(-2.0, 0.5),
	})
	m.set(Parameter{
		Name: "gas_logu", Free: true, Init: []float64{-2.0},
		Prior: topHat(-4.0, -1.0),
	})
	m.set(Parameter{
		Name: "eline_sigma", Free: true, Init: []float64{150.0},
		Units: "km/s", Prior: topHat(50, 500),
	})
}

func setSpectralCalibration(m *PhysicalModel, o *config.Options) {
	if o.Smoothing {
		m.set(Parameter{
			Name: "sigma_smooth", Free: true, Init: []float64{1000.0},
			Units: "km/s", Prior: topHat(200.0, 2000.0),
		})
	}
	m.set(Parameter{
		Name: "spec_norm", Free: true, Init: []float64{1.0},
		Prior: normal(1.0, 0.2),
	})
	m.set(Parameter{
		Name: "spec_jitter", Free: true, Init: []float64{1.0},
		Prior: topHat(0.0, 5.0),
	})
	m.set(Parameter{Name: "polyorder", Init: []float64{10}})
}

func setOutliers(m *PhysicalModel, o *config.Options) {
	if o.FitOutliersSpec && o.UseSpectroscopy {
		m.set(Parameter{
			Name: "f_outlier_spec", Free: true, Init: []float64{0.01},
			Prior: topHat(1e-5, 0.2),
		})
		m.set(Parameter{Name: "nsigma_outlier_spec", Init: []float64{50.0}})
	}
	if o.FitOutliersPhotometry && o.UsePhotometry {
		m.set(Parameter{
			Name: "f_outlier_phot", Free: true, Init: []float64{0.0},
			Prior: topHat(0.0, 0.1),
		})
		m.set(Parameter{Name: "nsigma_outlier_phot", Init: []float64{50.0}})
	}
}
