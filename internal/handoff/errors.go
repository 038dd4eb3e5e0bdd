package handoff

import "fmt"

// MalformedRecordError indicates a record failed structural validation before
// persistence.
type MalformedRecordError struct {
	Reason string
	Cause  error
}

func (e *MalformedRecordError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed handoff record: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed handoff record: %s", e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}

// MissingOutputArtifactError indicates a declared output path does not exist
// on disk. Path names the first absent path found.
type MissingOutputArtifactError struct {
	Kind string
	Path string
}

func (e *MissingOutputArtifactError) Error() string {
	return fmt.Sprintf("missing output artifact: %s file not found: %s", e.Kind, e.Path)
}

// DuplicateRecordError indicates a write collided with an existing record
// key. The caller must regenerate the timestamp; existing records are never
// overwritten.
type DuplicateRecordError struct {
	Key string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate handoff record: key already exists: %s", e.Key)
}

// UnknownNextStepError indicates recommended_next_step does not map to a
// known stage name.
type UnknownNextStepError struct {
	NextStep string
}

func (e *UnknownNextStepError) Error() string {
	return fmt.Sprintf("unknown next step: %q is not a recognized stage", e.NextStep)
}

// StageExecutionError indicates the external stage runner itself failed. The
// router records it as a synthetic failed handoff and halts the chain.
type StageExecutionError struct {
	Agent string
	Cause error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage execution failed: %s: %v", e.Agent, e.Cause)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Cause
}
