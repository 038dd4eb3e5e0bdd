// Package gate decides whether a handoff record permits pipeline
// progression.
package gate

import (
	"fmt"

	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/stage"
)

// Decision is the gate's verdict on one handoff record.
type Decision int

const (
	// Proceed allows the next stage to run.
	Proceed Decision = iota
	// ProceedWithWarning allows the next stage to run but the warning must
	// be surfaced to the operator log.
	ProceedWithWarning
	// Halt forbids routing; the chain is suspended pending manual
	// intervention.
	Halt
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "PROCEED"
	case ProceedWithWarning:
		return "PROCEED_WITH_WARNING"
	case Halt:
		return "HALT"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Result carries the decision and, for halts and warnings, a human-readable
// reason.
type Result struct {
	Decision Decision
	Reason   string
}

// Gate evaluates handoff records. Evaluate has no side effects and is
// deterministic for a fixed record, existence probe, and stage table, which
// the tests exploit directly.
type Gate struct {
	// Exists probes output paths; defaults to the filesystem.
	Exists func(path string) bool
	// Known reports whether a next-step name is a recognized routing
	// target; defaults to the stage registry.
	Known func(name string) bool
}

// New returns a Gate with the default filesystem probe and stage table.
func New() *Gate {
	return &Gate{Exists: handoff.FileExists, Known: stage.Known}
}

// Evaluate inspects one record and decides whether downstream processing may
// proceed, proceed with a surfaced warning, or must halt.
func (g *Gate) Evaluate(rec *handoff.Record) Result {
	exists := g.Exists
	if exists == nil {
		exists = handoff.FileExists
	}
	known := g.Known
	if known == nil {
		known = stage.Known
	}

	if err := rec.Validate(); err != nil {
		return Result{Decision: Halt, Reason: err.Error()}
	}

	if rec.ValidationStatus == handoff.StatusFailed {
		return Result{Decision: Halt, Reason: fmt.Sprintf("%s reported validation_status=failed", rec.AgentName)}
	}

	if err := rec.CheckOutputs(exists); err != nil {
		return Result{Decision: Halt, Reason: err.Error()}
	}

	if !known(rec.RecommendedNextStep) {
		err := &handoff.UnknownNextStepError{NextStep: rec.RecommendedNextStep}
		return Result{Decision: Halt, Reason: err.Error()}
	}

	if rec.ValidationStatus == handoff.StatusWarning {
		return Result{
			Decision: ProceedWithWarning,
			Reason:   fmt.Sprintf("%s reported validation_status=warning", rec.AgentName),
		}
	}

	return Result{Decision: Proceed}
}
