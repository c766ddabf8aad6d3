package observation

import "fmt"

// Validation errors are job-fatal but batch-non-fatal: the fault
// isolation runner converts them into recorded failures, and no other
// component may suppress them.

// MissingFieldError reports a required data field absent from a modality
// section (or the whole section absent).
type MissingFieldError struct {
	Modality string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: required field %q is missing", e.Modality, e.Field)
}

// MissingMetadataError reports required scalar metadata that is neither
// stored in the record nor supplied as an override.
type MissingMetadataError struct {
	Key string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("metadata: required value %q is missing", e.Key)
}

// EmptyModalityError reports a requested modality whose valid-entry
// count is zero after masking. A modality with no usable points is
// surfaced, never silently dropped.
type EmptyModalityError struct {
	Modality string
	Total    int
}

func (e *EmptyModalityError) Error() string {
	return fmt.Sprintf("%s: all %d entries are invalid after masking", e.Modality, e.Total)
}

// LengthMismatchError reports parallel arrays of unequal length within
// one modality section.
type LengthMismatchError struct {
	Modality string
	Field    string
	Got      int
	Want     int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: field %q has length %d, expected %d", e.Modality, e.Field, e.Got, e.Want)
}
