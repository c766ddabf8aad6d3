package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
)

// FormatKey is the reserved top-level key carrying the file format
// version. It is not a version group.
const FormatKey = "format_version"

// supportedFormat is the semver range of source formats this loader
// understands. Files without a format_version are accepted as-is.
var supportedFormat = mustConstraint("^1")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// SourceAccessError reports that a source file could not be read or
// parsed. Job-fatal, batch-non-fatal.
type SourceAccessError struct {
	Path string
	Err  error
}

func (e *SourceAccessError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, e.Err)
}

func (e *SourceAccessError) Unwrap() error { return e.Err }

// VersionNotFoundError reports that the requested version group is
// absent from the source file.
type VersionNotFoundError struct {
	Path    string
	Version string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found in %s", e.Version, e.Path)
}

// Load reads the named version group from a source file into memory.
//
// Only structural checks happen here: the file must parse, the version
// group must exist, and each section must be an object of fields. Data
// quality is the validator's concern, keeping I/O failures and
// data-quality failures distinct.
func Load(path, version string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceAccessError{Path: path, Err: err}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &SourceAccessError{Path: path, Err: fmt.Errorf("malformed source: %w", err)}
	}

	if raw, ok := top[FormatKey]; ok {
		if err := checkFormat(raw); err != nil {
			return nil, &SourceAccessError{Path: path, Err: err}
		}
	}

	rawGroup, ok := top[version]
	if !ok {
		return nil, &VersionNotFoundError{Path: path, Version: version}
	}

	var rawSections map[string]json.RawMessage
	if err := json.Unmarshal(rawGroup, &rawSections); err != nil {
		return nil, &SourceAccessError{
			Path: path,
			Err:  fmt.Errorf("version group %q is not an object: %w", version, err),
		}
	}

	rec := &Record{Path: path, Version: version, sections: make(map[string]Section, len(rawSections))}
	for name, rawSection := range rawSections {
		var section Section
		if err := json.Unmarshal(rawSection, &section); err != nil {
			return nil, &SourceAccessError{
				Path: path,
				Err:  fmt.Errorf("section %q: %w", name, err),
			}
		}
		rec.sections[name] = section
	}
	return rec, nil
}

// checkFormat validates the declared format version against the
// supported range.
func checkFormat(raw json.RawMessage) error {
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return fmt.Errorf("%s must be a string: %w", FormatKey, err)
	}
	v, err := semver.NewVersion(label)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", FormatKey, label, err)
	}
	if !supportedFormat.Check(v) {
		return fmt.Errorf("unsupported %s %q (supported range %s)", FormatKey, label, supportedFormat)
	}
	return nil
}
