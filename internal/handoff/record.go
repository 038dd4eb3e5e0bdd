// Package handoff defines the handoff record exchanged between pipeline
// agents, along with its timestamp convention and validation rules.
package handoff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the wire format for handoff timestamps (YYYYMMDD_HHMMSS).
// Lexicographic order of formatted timestamps matches chronological order,
// which the store relies on when sorting chains.
const TimestampLayout = "20060102_150405"

// Status is the validation outcome an agent declares on its handoff.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// PathList holds the file paths for one output kind. The wire format accepts
// either a single path string or an array of paths; a single-element list
// round-trips back to a bare string.
type PathList []string

// UnmarshalJSON accepts either "path" or ["path", ...].
func (p *PathList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = PathList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("output paths must be a string or array of strings: %w", err)
	}
	*p = PathList(many)
	return nil
}

// MarshalJSON emits a bare string for single-path outputs to match the
// convention used by agent-written handoff files.
func (p PathList) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(p[0])
	}
	return json.Marshal([]string(p))
}

// Record is the manifest one agent writes to communicate its outputs and
// routing intent to the next stage. Records are immutable once written;
// corrections require a new record with a later timestamp.
type Record struct {
	AgentName           string              `json:"agent_name" validate:"required"`
	Timestamp           string              `json:"timestamp" validate:"required"`
	Stage               int                 `json:"stage" validate:"gte=0,lte=10"`
	ProblemStatement    string              `json:"problem_statement" validate:"required"`
	Outputs             map[string]PathList `json:"outputs"`
	ValidationStatus    Status              `json:"validation_status" validate:"required,oneof=passed warning failed"`
	Findings            map[string]any      `json:"findings,omitempty"`
	RecommendedNextStep string              `json:"recommended_next_step" validate:"required"`
}

// FormatTimestamp renders t in the handoff timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a handoff timestamp string.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid handoff timestamp %q: %w", s, err)
	}
	return t, nil
}

// Time returns the record's timestamp as a time.Time.
func (r *Record) Time() (time.Time, error) {
	return ParseTimestamp(r.Timestamp)
}

// Key returns the record's store key within its problem statement:
// {agent_lower}_to_{next_step}_{timestamp}.
func (r *Record) Key() string {
	return fmt.Sprintf("%s_to_%s_%s",
		strings.ToLower(r.AgentName), r.RecommendedNextStep, r.Timestamp)
}

// Filename returns the on-disk file name for the record.
func (r *Record) Filename() string {
	return r.Key() + ".json"
}

// AllOutputPaths returns every declared output path, ordered by output kind
// then declaration order, so validation reports the same missing path on
// every run.
func (r *Record) AllOutputPaths() []string {
	kinds := make([]string, 0, len(r.Outputs))
	for kind := range r.Outputs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var paths []string
	for _, kind := range kinds {
		paths = append(paths, r.Outputs[kind]...)
	}
	return paths
}
