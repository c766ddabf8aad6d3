package observation

import (
	"github.com/sedbatch/sedbatch/internal/config"
	"github.com/sedbatch/sedbatch/internal/dataset"
)

// Field names expected inside modality sections.
const (
	fieldFlux       = "flux"
	fieldFluxErr    = "flux_err"
	fieldMask       = "mask"
	fieldFilters    = "filters"
	fieldWavelength = "wavelength"
	fieldRedshift   = "redshift"
)

// Policy controls which modalities are validated and how masks are
// derived. It is a snapshot of the data-selection options of one job.
type Policy struct {
	UsePhotometry   bool
	UseSpectroscopy bool

	// FilterPhotometry / FilterSpectroscopy enable the automatic
	// finiteness and positivity checks for the respective modality.
	// When off, only the declared mask applies, allowing deliberately
	// flagged-but-fittable data through.
	FilterPhotometry   bool
	FilterSpectroscopy bool

	// UseStoredMask requires and applies the mask field declared in the
	// source. A declared mask can only narrow validity, never widen it
	// past the automatic checks.
	UseStoredMask bool

	// RedshiftOverride, when non-nil, takes precedence over the
	// record's stored redshift.
	RedshiftOverride *float64

	// RequireRedshift fails validation when no redshift can be
	// resolved at all.
	RequireRedshift bool
}

// PolicyFromOptions derives the validation policy from a resolved job
// configuration.
func PolicyFromOptions(o *config.Options) Policy {
	return Policy{
		UsePhotometry:      o.UsePhotometry,
		UseSpectroscopy:    o.UseSpectroscopy,
		FilterPhotometry:   o.FilterPhotometry,
		FilterSpectroscopy: o.FilterSpectroscopy,
		UseStoredMask:      o.UseStoredMask,
		RedshiftOverride:   o.Redshift,
		RequireRedshift:    o.FixedRedshift,
	}
}

// Validate produces a cleaned observation bundle from a raw record.
//
// For each requested modality the derived validity mask is the logical
// AND of the declared mask (when UseStoredMask is set) and, when
// filtering is enabled, value finiteness and uncertainty finiteness and
// positivity. Spectroscopy additionally requires finite, positive
// wavelengths. A requested modality whose valid count comes out zero is
// an EmptyModalityError.
func Validate(rec *dataset.Record, pol Policy) (*Bundle, error) {
	bundle := &Bundle{}

	if pol.UsePhotometry {
		if err := validatePhotometry(rec, pol, bundle); err != nil {
			return nil, err
		}
	}
	if pol.UseSpectroscopy {
		if err := validateSpectroscopy(rec, pol, bundle); err != nil {
			return nil, err
		}
	}
	if err := resolveRedshift(rec, pol, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func validatePhotometry(rec *dataset.Record, pol Policy, bundle *Bundle) error {
	section, _ := rec.Section(dataset.SectionPhotometry)

	flux, err := numbersField(section, ModalityPhotometry, fieldFlux)
	if err != nil {
		return err
	}
	fluxErr, err := numbersField(section, ModalityPhotometry, fieldFluxErr)
	if err != nil {
		return err
	}
	if len(fluxErr) != len(flux) {
		return &LengthMismatchError{
			Modality: ModalityPhotometry, Field: fieldFluxErr,
			Got: len(fluxErr), Want: len(flux),
		}
	}

	filtersField, ok := section.Field(fieldFilters)
	if !ok {
		return &MissingFieldError{Modality: ModalityPhotometry, Field: fieldFilters}
	}
	filters, ok := filtersField.Strings()
	if !ok {
		return &MissingFieldError{Modality: ModalityPhotometry, Field: fieldFilters}
	}
	if len(filters) != len(flux) {
		return &LengthMismatchError{
			Modality: ModalityPhotometry, Field: fieldFilters,
			Got: len(filters), Want: len(flux),
		}
	}

	mask, err := declaredMask(section, pol, ModalityPhotometry, len(flux))
	if err != nil {
		return err
	}
	if pol.FilterPhotometry {
		for i := range flux {
			mask[i] = mask[i] && isFinite(flux[i]) && isFinite(fluxErr[i]) && fluxErr[i] > 0
		}
	}

	series := &Series{
		Values:        append([]float64(nil), flux...),
		Uncertainties: append([]float64(nil), fluxErr...),
		Mask:          mask,
	}
	if series.ValidCount() == 0 {
		return &EmptyModalityError{Modality: ModalityPhotometry, Total: series.Len()}
	}
	series.inert()

	bundle.Photometry = series
	bundle.Filters = append([]string(nil), filters...)
	return nil
}

func validateSpectroscopy(rec *dataset.Record, pol Policy, bundle *Bundle) error {
	section, _ := rec.Section(dataset.SectionSpectroscopy)

	wave, err := numbersField(section, ModalitySpectroscopy, fieldWavelength)
	if err != nil {
		return err
	}
	flux, err := numbersField(section, ModalitySpectroscopy, fieldFlux)
	if err != nil {
		return err
	}
	fluxErr, err := numbersField(section, ModalitySpectroscopy, fieldFluxErr)
	if err != nil {
		return err
	}
	if len(wave) != len(flux) {
		return &LengthMismatchError{
			Modality: ModalitySpectroscopy, Field: fieldWavelength,
			Got: len(wave), Want: len(flux),
		}
	}
	if len(fluxErr) != len(flux) {
		return &LengthMismatchError{
			Modality: ModalitySpectroscopy, Field: fieldFluxErr,
			Got: len(fluxErr), Want: len(flux),
		}
	}

	mask, err := declaredMask(section, pol, ModalitySpectroscopy, len(flux))
	if err != nil {
		return err
	}
	if pol.FilterSpectroscopy {
		for i := range flux {
			mask[i] = mask[i] &&
				isFinite(flux[i]) &&
				isFinite(fluxErr[i]) && fluxErr[i] > 0 &&
				isFinite(wave[i]) && wave[i] > 0
		}
	}

	series := &Series{
		Values:        append([]float64(nil), flux...),
		Uncertainties: append([]float64(nil), fluxErr...),
		Mask:          mask,
	}
	if series.ValidCount() == 0 {
		return &EmptyModalityError{Modality: ModalitySpectroscopy, Total: series.Len()}
	}
	series.inert()

	bundle.Spectroscopy = series
	bundle.Wavelength = append([]float64(nil), wave...)
	return nil
}

// numbersField fetches a required numeric array from a section. A nil
// section (absent from the record) reports the field as missing.
func numbersField(section dataset.Section, modality, name string) ([]float64, error) {
	f, ok := section.Field(name)
	if !ok {
		return nil, &MissingFieldError{Modality: modality, Field: name}
	}
	values, ok := f.Numbers()
	if !ok {
		return nil, &MissingFieldError{Modality: modality, Field: name}
	}
	return values, nil
}

// declaredMask returns the starting validity mask: the stored mask when
// the policy honors it, otherwise all-true.
func declaredMask(section dataset.Section, pol Policy, modality string, n int) ([]bool, error) {
	if !pol.UseStoredMask {
		return allTrue(n), nil
	}
	f, ok := section.Field(fieldMask)
	if !ok {
		return nil, &MissingFieldError{Modality: modality, Field: fieldMask}
	}
	stored, ok := f.Bools()
	if !ok {
		return nil, &MissingFieldError{Modality: modality, Field: fieldMask}
	}
	if len(stored) != n {
		return nil, &LengthMismatchError{Modality: modality, Field: fieldMask, Got: len(stored), Want: n}
	}
	return append([]bool(nil), stored...), nil
}

func allTrue(n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// resolveRedshift applies the override-beats-stored precedence: an
// explicit override wins, otherwise the record's metadata value is used,
// otherwise the bundle carries no redshift (an error when one is
// required).
func resolveRedshift(rec *dataset.Record, pol Policy, bundle *Bundle) error {
	if pol.RedshiftOverride != nil {
		bundle.Redshift = *pol.RedshiftOverride
		bundle.HasRedshift = true
		return nil
	}

	meta, _ := rec.Section(dataset.SectionMetadata)
	if f, ok := meta.Field(fieldRedshift); ok {
		if z, ok := f.Scalar(); ok {
			bundle.Redshift = z
			bundle.HasRedshift = true
			return nil
		}
	}

	if pol.RequireRedshift {
		return &MissingMetadataError{Key: fieldRedshift}
	}
	return nil
}
