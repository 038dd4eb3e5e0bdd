// Package runner defines the stage runner collaborator: the external process
// or function that actually executes one analysis agent and produces its
// handoff record.
package runner

import (
	"context"

	"github.com/melissa/agent-orchestrator/internal/agent"
	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// Runner executes one agent for one problem statement. A stage is atomic
// from the router's point of view: Run either returns a complete handoff
// record or an error, never partial progress.
type Runner interface {
	Run(ctx context.Context, ac agent.Context) (*handoff.Record, error)
}

// Func adapts a plain function to the Runner interface; tests use this.
type Func func(ctx context.Context, ac agent.Context) (*handoff.Record, error)

// Run implements Runner.
func (f Func) Run(ctx context.Context, ac agent.Context) (*handoff.Record, error) {
	return f(ctx, ac)
}
