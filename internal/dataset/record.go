// Package dataset reads raw observation records from hierarchical JSON
// source files. A file maps version labels to groups, and each group maps
// section names (metadata, photometry, spectroscopy) to fields. Nothing
// here guarantees the data is clean; semantic checks live in the
// observation package.
package dataset

import (
	"encoding/json"
	"fmt"
)

// Canonical section names inside a version group.
const (
	SectionMetadata     = "metadata"
	SectionPhotometry   = "photometry"
	SectionSpectroscopy = "spectroscopy"
)

// FieldKind discriminates the payload stored in a Field.
type FieldKind int

const (
	KindAbsent FieldKind = iota
	KindNumbers
	KindStrings
	KindBools
	KindScalar
	KindText
)

// Field is one entry of a section: a numeric array, a string array, a
// boolean array, or a scalar. Absence is represented by the section map,
// not by a Field value, so an empty array is distinct from a missing one.
type Field struct {
	kind    FieldKind
	numbers []float64
	strings []string
	bools   []bool
	scalar  float64
	text    string
}

// NumbersField builds a numeric-array field. Used by tests and adapters.
func NumbersField(v []float64) Field { return Field{kind: KindNumbers, numbers: v} }

// StringsField builds a string-array field.
func StringsField(v []string) Field { return Field{kind: KindStrings, strings: v} }

// BoolsField builds a boolean-array field.
func BoolsField(v []bool) Field { return Field{kind: KindBools, bools: v} }

// ScalarField builds a scalar field.
func ScalarField(v float64) Field { return Field{kind: KindScalar, scalar: v} }

// TextField builds a single-string field.
func TextField(v string) Field { return Field{kind: KindText, text: v} }

// Kind reports the stored payload kind.
func (f Field) Kind() FieldKind { return f.kind }

// Numbers returns the numeric array payload.
func (f Field) Numbers() ([]float64, bool) {
	if f.kind != KindNumbers {
		return nil, false
	}
	return f.numbers, true
}

// Strings returns the string array payload.
func (f Field) Strings() ([]string, bool) {
	if f.kind != KindStrings {
		return nil, false
	}
	return f.strings, true
}

// Bools returns the boolean array payload. Numeric arrays convert, with
// zero meaning false, because masks are stored either way in the wild.
func (f Field) Bools() ([]bool, bool) {
	switch f.kind {
	case KindBools:
		return f.bools, true
	case KindNumbers:
		out := make([]bool, len(f.numbers))
		for i, v := range f.numbers {
			out[i] = v != 0
		}
		return out, true
	default:
		return nil, false
	}
}

// Scalar returns the scalar payload. Single-element numeric arrays
// promote, matching how array-of-one datasets are stored upstream.
func (f Field) Scalar() (float64, bool) {
	switch {
	case f.kind == KindScalar:
		return f.scalar, true
	case f.kind == KindNumbers && len(f.numbers) == 1:
		return f.numbers[0], true
	default:
		return 0, false
	}
}

// Text returns the single-string payload.
func (f Field) Text() (string, bool) {
	if f.kind != KindText {
		return "", false
	}
	return f.text, true
}

// UnmarshalJSON accepts scalars, strings, and homogeneous arrays of
// numbers, strings, or booleans.
func (f *Field) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*f = ScalarField(scalar)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = TextField(text)
		return nil
	}

	var numbers []float64
	if err := json.Unmarshal(data, &numbers); err == nil {
		*f = NumbersField(numbers)
		return nil
	}

	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil {
		*f = StringsField(strs)
		return nil
	}

	var bools []bool
	if err := json.Unmarshal(data, &bools); err == nil {
		*f = BoolsField(bools)
		return nil
	}

	return fmt.Errorf("unsupported field payload: %s", truncate(data))
}

func truncate(data []byte) string {
	const max = 40
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}

// Section maps field names to values.
type Section map[string]Field

// Field looks a field up by name, reporting absence distinctly from any
// stored value.
func (s Section) Field(name string) (Field, bool) {
	f, ok := s[name]
	return f, ok
}

// Record is one version group of a source file, held in memory. Owned
// transiently by the loader's caller and consumed by validation; not
// retained afterwards.
type Record struct {
	Path    string
	Version string

	sections map[string]Section
}

// Section returns a named section, reporting absence distinctly from an
// empty section.
func (r *Record) Section(name string) (Section, bool) {
	s, ok := r.sections[name]
	return s, ok
}

// SetSection installs a section. Used by tests to build records directly.
func (r *Record) SetSection(name string, s Section) {
	if r.sections == nil {
		r.sections = make(map[string]Section)
	}
	r.sections[name] = s
}
