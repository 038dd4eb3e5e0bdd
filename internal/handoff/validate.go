package handoff

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the record's structural completeness: all envelope fields
// present and well-typed, timestamp parseable, at least one output declared.
// Findings are deliberately not validated beyond the envelope; each stage
// defines its own keys.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &MalformedRecordError{Reason: "structural validation failed", Cause: err}
	}

	if _, err := ParseTimestamp(r.Timestamp); err != nil {
		return &MalformedRecordError{Reason: "invalid timestamp", Cause: err}
	}

	// Failed records may carry no outputs: the router synthesizes such
	// records when a stage runner itself errors out.
	if len(r.Outputs) == 0 && r.ValidationStatus != StatusFailed {
		return &MalformedRecordError{Reason: "outputs must declare at least one artifact"}
	}
	for kind, paths := range r.Outputs {
		if len(paths) == 0 {
			return &MalformedRecordError{Reason: fmt.Sprintf("output kind %q declares no paths", kind)}
		}
		for _, p := range paths {
			if p == "" {
				return &MalformedRecordError{Reason: fmt.Sprintf("output kind %q declares an empty path", kind)}
			}
		}
	}

	return nil
}

// CheckOutputs verifies every declared output path exists, using the given
// existence probe. Returns a MissingOutputArtifactError naming the first
// absent path. Kinds are checked in sorted order for deterministic reporting.
func (r *Record) CheckOutputs(exists func(string) bool) error {
	if exists == nil {
		exists = FileExists
	}

	kinds := make([]string, 0, len(r.Outputs))
	for kind := range r.Outputs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		for _, p := range r.Outputs[kind] {
			if !exists(p) {
				return &MissingOutputArtifactError{Kind: kind, Path: p}
			}
		}
	}
	return nil
}

// FileExists is the default existence probe used by CheckOutputs.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
