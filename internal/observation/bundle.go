// Package observation turns a raw dataset record into a cleaned, typed
// observation bundle that is safe to hand to a fitting engine, or fails
// with a diagnosable reason. Validation is a pure transformation: all
// outcomes are in the return value or the error.
package observation

import "math"

// Modality names used in diagnostics.
const (
	ModalityPhotometry   = "photometry"
	ModalitySpectroscopy = "spectroscopy"
)

// Series holds one modality's parallel sequences. The invariant
// len(Values) == len(Uncertainties) == len(Mask) is established by the
// validator and holds for every Series it returns. Uncertainties at
// valid (Mask true) indices are finite and strictly positive whenever
// filtering was enabled.
type Series struct {
	Values        []float64
	Uncertainties []float64
	Mask          []bool
}

// Len returns the number of entries in the series.
func (s *Series) Len() int { return len(s.Values) }

// ValidCount returns the number of entries usable by a fit.
func (s *Series) ValidCount() int {
	n := 0
	for _, ok := range s.Mask {
		if ok {
			n++
		}
	}
	return n
}

// Bundle is the validated, fit-ready observation. Modalities that were
// not requested are nil.
type Bundle struct {
	Photometry *Series
	// Filters names the photometric bands, parallel to Photometry.
	Filters []string

	Spectroscopy *Series
	// Wavelength is parallel to Spectroscopy, in the observed frame.
	Wavelength []float64

	Redshift    float64
	HasRedshift bool
}

// inert replaces unusable value/uncertainty pairs at masked-out indices
// so they cannot poison a weighted fit: the value becomes zero and the
// uncertainty +Inf, giving the point exactly zero weight.
func (s *Series) inert() {
	for i, ok := range s.Mask {
		if ok {
			continue
		}
		if !isFinite(s.Values[i]) {
			s.Values[i] = 0
		}
		if !isFinite(s.Uncertainties[i]) || s.Uncertainties[i] <= 0 {
			s.Uncertainties[i] = math.Inf(1)
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
