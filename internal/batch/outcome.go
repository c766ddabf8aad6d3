package batch

import (
	"errors"
	"time"

	"github.com/sedbatch/sedbatch/internal/dataset"
	"github.com/sedbatch/sedbatch/internal/engine"
	"github.com/sedbatch/sedbatch/internal/observation"
)

// Status tags a job outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Failure kind labels recorded in outcomes and logs. Stable strings, not
// error messages, so summaries can group failures by cause.
const (
	KindSourceAccess    = "source_access"
	KindVersionNotFound = "version_not_found"
	KindMissingField    = "missing_field"
	KindMissingMetadata = "missing_metadata"
	KindEmptyModality   = "empty_modality"
	KindLengthMismatch  = "length_mismatch"
	KindEngine          = "engine"
	KindPanic           = "panic"
	KindInternal        = "internal"
)

// Outcome records how one job ended. One per JobUnit, appended to the
// worker's outcome log and never overwritten.
type Outcome struct {
	Dataset  string        `json:"dataset"`
	Worker   int           `json:"worker"`
	Status   Status        `json:"status"`
	ErrKind  string        `json:"err_kind,omitempty"`
	ErrMsg   string        `json:"err_msg,omitempty"`
	Duration time.Duration `json:"duration"`

	// ResultPath is the persisted result file for successful jobs.
	ResultPath string `json:"result_path,omitempty"`
}

// Failed reports whether the job ended in failure.
func (o Outcome) Failed() bool { return o.Status == StatusFailure }

// classify maps a job error onto its taxonomy kind.
func classify(err error) string {
	var (
		sourceErr   *dataset.SourceAccessError
		versionErr  *dataset.VersionNotFoundError
		missingErr  *observation.MissingFieldError
		metadataErr *observation.MissingMetadataError
		emptyErr    *observation.EmptyModalityError
		lengthErr   *observation.LengthMismatchError
		engineErr   *engine.Error
	)
	switch {
	case errors.As(err, &versionErr):
		return KindVersionNotFound
	case errors.As(err, &sourceErr):
		return KindSourceAccess
	case errors.As(err, &missingErr):
		return KindMissingField
	case errors.As(err, &metadataErr):
		return KindMissingMetadata
	case errors.As(err, &emptyErr):
		return KindEmptyModality
	case errors.As(err, &lengthErr):
		return KindLengthMismatch
	case errors.As(err, &engineErr):
		return KindEngine
	default:
		return KindInternal
	}
}
