// Package router translates gate decisions and declared next steps into
// concrete stage invocations, driving a problem statement's chain from its
// first agent to completion or halt.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melissa/agent-orchestrator/internal/agent"
	"github.com/melissa/agent-orchestrator/internal/gate"
	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/runner"
	"github.com/melissa/agent-orchestrator/internal/stage"
	"github.com/melissa/agent-orchestrator/internal/store"
)

// DefaultMaxReExtractions bounds the re_extraction loop-back edge. The edge
// is an ordinary routing decision made by upstream agents, so without a
// bound a low-quality dataset could cycle extraction forever.
const DefaultMaxReExtractions = 3

// AuditEntry is one routing decision, logged for every transition.
type AuditEntry struct {
	RunID            uuid.UUID
	ProblemStatement string
	FromStage        string
	ToStage          string
	Decision         string
	Timestamp        string
}

// RunOptions configures one pipeline run.
type RunOptions struct {
	ProblemStatement string
	Title            string
	// ResumeFrom names the stage to start (or restart) from; empty means
	// extraction.
	ResumeFrom string
	// Agents restricts which stages may run; empty means all registered
	// stages. A declared next step outside this set halts the chain.
	Agents []string
	// Instructions holds per-stage operator instructions passed into the
	// agent context.
	Instructions map[string][]string
}

// RunResult summarizes a pipeline run for one problem statement.
type RunResult struct {
	RunID      uuid.UUID
	Records    []*handoff.Record
	Completed  bool
	HaltReason string
}

// Router owns no business rules: it executes whatever next step the upstream
// agent declared, through the declarative stage table.
type Router struct {
	store            store.Store
	gate             *gate.Gate
	runner           runner.Runner
	log              *zap.Logger
	maxReExtractions int
	now              func() time.Time

	mu    sync.Mutex
	audit []AuditEntry
}

// Option configures a Router.
type Option func(*Router)

// WithMaxReExtractions overrides the re_extraction bound.
func WithMaxReExtractions(n int) Option {
	return func(r *Router) { r.maxReExtractions = n }
}

// WithClock overrides the router's clock; tests pin timestamps with this.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a Router over the given store, gate, and stage runner.
func New(st store.Store, g *gate.Gate, rn runner.Runner, log *zap.Logger, opts ...Option) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		store:            st,
		gate:             g,
		runner:           rn,
		log:              log,
		maxReExtractions: DefaultMaxReExtractions,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AuditLog returns a copy of the routing decisions made so far.
func (r *Router) AuditLog() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEntry, len(r.audit))
	copy(out, r.audit)
	return out
}

// Next reads the chain's latest record, gates it, and resolves the stage it
// routes to. Terminal is true when the chain declared itself complete.
func (r *Router) Next(ctx context.Context, problemStatement string) (def stage.Definition, res gate.Result, terminal bool, err error) {
	rec, err := r.store.ReadLatest(ctx, problemStatement)
	if err != nil {
		return stage.Definition{}, gate.Result{}, false, err
	}

	res = r.gate.Evaluate(rec)
	if res.Decision == gate.Halt {
		return stage.Definition{}, res, false, nil
	}

	def, terminal, ok := stage.Resolve(rec.RecommendedNextStep)
	if !ok {
		// Unreachable when the gate uses the same stage table, kept as a
		// belt check against a custom Known func.
		res = gate.Result{
			Decision: gate.Halt,
			Reason:   (&handoff.UnknownNextStepError{NextStep: rec.RecommendedNextStep}).Error(),
		}
		return stage.Definition{}, res, false, nil
	}
	return def, res, terminal, nil
}

// RunSequential drives one problem statement through the pipeline: invoke a
// stage, persist its handoff, gate it, follow its declared next step.
// Exactly one stage executes at a time; the chain halts on the first gate
// Halt, store rejection, or runner failure.
func (r *Router) RunSequential(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New()}

	enabled := enabledSet(opts.Agents)

	startName := opts.ResumeFrom
	if startName == "" {
		startName = "extraction"
	}
	current, ok := stage.Registry[startName]
	if !ok {
		return nil, &handoff.UnknownNextStepError{NextStep: startName}
	}

	// A resumed chain keeps its history; prior re_extraction edges count
	// against the bound.
	var prev *handoff.Record
	reExtractions := 0
	if chain, err := r.store.ReadChain(ctx, opts.ProblemStatement); err == nil {
		prev = chain[len(chain)-1]
		for _, rec := range chain {
			if rec.RecommendedNextStep == stage.NextReExtraction {
				reExtractions++
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ac := agent.Context{
			ProblemStatementNum:   opts.ProblemStatement,
			ProblemStatementTitle: opts.Title,
			Timestamp:             handoff.FormatTimestamp(r.now()),
			Stage:                 current.Ordinal,
			AgentName:             current.Agent,
			Instructions:          opts.Instructions[current.Name],
		}
		ac.MergeHandoff(prev)

		r.log.Info("starting stage",
			zap.String("problem_statement", opts.ProblemStatement),
			zap.String("agent", current.Agent),
			zap.Int("stage", current.Ordinal))

		rec, err := r.runner.Run(ctx, ac)
		if err != nil {
			synthetic := r.synthesizeFailure(opts.ProblemStatement, current, err)
			if _, werr := r.store.Write(ctx, synthetic); werr != nil {
				r.log.Error("failed to persist synthetic failure record", zap.Error(werr))
			}
			result.Records = append(result.Records, synthetic)
			result.HaltReason = (&handoff.StageExecutionError{Agent: current.Agent, Cause: err}).Error()
			r.recordDecision(result.RunID, opts.ProblemStatement, current.Name, "", gate.Halt.String())
			r.log.Error("stage execution failed, chain halted",
				zap.String("problem_statement", opts.ProblemStatement),
				zap.String("agent", current.Agent),
				zap.Error(err))
			return result, nil
		}

		if _, err := r.store.Write(ctx, rec); err != nil {
			result.HaltReason = fmt.Sprintf("handoff rejected by store: %v", err)
			r.recordDecision(result.RunID, opts.ProblemStatement, current.Name, rec.RecommendedNextStep, gate.Halt.String())
			r.log.Error("handoff record rejected",
				zap.String("problem_statement", opts.ProblemStatement),
				zap.String("agent", current.Agent),
				zap.Error(err))
			return result, nil
		}
		result.Records = append(result.Records, rec)

		res := r.gate.Evaluate(rec)
		r.recordDecision(result.RunID, opts.ProblemStatement, current.Name, rec.RecommendedNextStep, res.Decision.String())

		switch res.Decision {
		case gate.Halt:
			result.HaltReason = res.Reason
			r.log.Error("chain halted",
				zap.String("problem_statement", opts.ProblemStatement),
				zap.String("agent", current.Agent),
				zap.String("reason", res.Reason))
			return result, nil
		case gate.ProceedWithWarning:
			r.log.Warn("proceeding with warning",
				zap.String("problem_statement", opts.ProblemStatement),
				zap.String("agent", current.Agent),
				zap.String("reason", res.Reason))
		}

		next, terminal, _ := stage.Resolve(rec.RecommendedNextStep)
		if terminal {
			result.Completed = true
			r.log.Info("pipeline complete",
				zap.String("problem_statement", opts.ProblemStatement),
				zap.Int("records", len(result.Records)))
			return result, nil
		}

		if rec.RecommendedNextStep == stage.NextReExtraction {
			reExtractions++
			if reExtractions > r.maxReExtractions {
				result.HaltReason = fmt.Sprintf(
					"re_extraction requested %d times, exceeding the limit of %d; operator intervention required",
					reExtractions, r.maxReExtractions)
				r.log.Error("re_extraction limit exceeded",
					zap.String("problem_statement", opts.ProblemStatement),
					zap.Int("count", reExtractions))
				return result, nil
			}
			r.log.Warn("looping back to extraction",
				zap.String("problem_statement", opts.ProblemStatement),
				zap.Int("attempt", reExtractions))
		}

		if _, ok := enabled[next.Name]; !ok {
			result.HaltReason = fmt.Sprintf("next stage %q is not enabled for this run", next.Name)
			return result, nil
		}

		prev = rec
		current = next
	}
}

// synthesizeFailure builds the failed record the router persists when the
// stage runner itself errors out.
func (r *Router) synthesizeFailure(problemStatement string, def stage.Definition, cause error) *handoff.Record {
	return &handoff.Record{
		AgentName:        def.Agent,
		Timestamp:        handoff.FormatTimestamp(r.now()),
		Stage:            def.Ordinal,
		ProblemStatement: problemStatement,
		Outputs:          map[string]handoff.PathList{},
		ValidationStatus: handoff.StatusFailed,
		Findings:         map[string]any{"error": cause.Error()},
		// Failed records are never routed; the sentinel records intent only.
		RecommendedNextStep: stage.NextComplete,
	}
}

func (r *Router) recordDecision(runID uuid.UUID, problemStatement, from, to, decision string) {
	entry := AuditEntry{
		RunID:            runID,
		ProblemStatement: problemStatement,
		FromStage:        from,
		ToStage:          to,
		Decision:         decision,
		Timestamp:        handoff.FormatTimestamp(r.now()),
	}

	r.mu.Lock()
	r.audit = append(r.audit, entry)
	r.mu.Unlock()

	r.log.Info("routing decision",
		zap.String("problem_statement", problemStatement),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("decision", decision))
}

func enabledSet(agents []string) map[string]struct{} {
	enabled := make(map[string]struct{})
	if len(agents) == 0 {
		for name := range stage.Registry {
			enabled[name] = struct{}{}
		}
		return enabled
	}
	for _, name := range agents {
		enabled[name] = struct{}{}
	}
	return enabled
}
