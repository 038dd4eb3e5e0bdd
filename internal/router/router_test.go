package router

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melissa/agent-orchestrator/internal/agent"
	"github.com/melissa/agent-orchestrator/internal/gate"
	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/runner"
	"github.com/melissa/agent-orchestrator/internal/store"
)

type testEnv struct {
	root  string
	store *store.FileStore
	clock *fakeClock
}

// fakeClock hands out strictly increasing timestamps so record keys never
// collide within a run.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	clock := &fakeClock{t: time.Date(2025, time.August, 25, 9, 0, 0, 0, time.UTC)}
	return &testEnv{
		root:  root,
		store: store.NewFileStore(filepath.Join(root, "handoffs"), filepath.Join(root, "archive")),
		clock: clock,
	}
}

func (e *testEnv) artifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.root, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func (e *testEnv) router(rn runner.Runner, opts ...Option) *Router {
	opts = append([]Option{WithClock(e.clock.Now)}, opts...)
	return New(e.store, gate.New(), rn, nil, opts...)
}

// scriptedRunner replies with a canned record per agent name and counts
// invocations.
type scriptedRunner struct {
	env     *testEnv
	t       *testing.T
	scripts map[string]func(ac agent.Context) *handoff.Record
	calls   []string
}

func (s *scriptedRunner) Run(_ context.Context, ac agent.Context) (*handoff.Record, error) {
	s.calls = append(s.calls, ac.AgentName)
	script, ok := s.scripts[ac.AgentName]
	if !ok {
		return nil, fmt.Errorf("unexpected agent invocation: %s", ac.AgentName)
	}
	return script(ac), nil
}

func (e *testEnv) record(t *testing.T, ac agent.Context, status handoff.Status, nextStep string, findings map[string]any) *handoff.Record {
	t.Helper()
	return &handoff.Record{
		AgentName:           ac.AgentName,
		Timestamp:           ac.Timestamp,
		Stage:               ac.Stage,
		ProblemStatement:    ac.ProblemStatementNum,
		Outputs:             map[string]handoff.PathList{"data": {e.artifact(t, fmt.Sprintf("%s_%s.out", ac.AgentName, ac.Timestamp))}},
		ValidationStatus:    status,
		Findings:            findings,
		RecommendedNextStep: nextStep,
	}
}

// Scenario A: a passed profiling record recommending eda routes straight to
// the EDA agent, skipping cleaning entirely (Scenario E).
func TestRunSequential_QualitySkipRoutesToEDA(t *testing.T) {
	env := newTestEnv(t)
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "profiling", nil)
		},
		"ProfilingAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "eda", map[string]any{"overall_score": 95})
		},
		"EDAAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "complete", nil)
		},
	}

	result, err := env.router(rn).RunSequential(context.Background(), RunOptions{
		ProblemStatement: "001",
		Title:            "Workforce Capacity Mismatch",
	})
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Empty(t, result.HaltReason)
	assert.Equal(t, []string{"ExtractionAgent", "ProfilingAgent", "EDAAgent"}, rn.calls)
	assert.NotContains(t, rn.calls, "CleaningAgent")
}

// Scenario B: a failed record halts the chain and the latest record on disk
// is the failed one, unchanged by a re-read.
func TestRunSequential_FailedRecordHalts(t *testing.T) {
	env := newTestEnv(t)
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusFailed, "profiling", map[string]any{"error": "source unreachable"})
		},
	}

	result, err := env.router(rn).RunSequential(context.Background(), RunOptions{ProblemStatement: "001"})
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Contains(t, result.HaltReason, "failed")
	assert.Equal(t, []string{"ExtractionAgent"}, rn.calls)

	latest, err := env.store.ReadLatest(context.Background(), "001")
	require.NoError(t, err)
	assert.Equal(t, handoff.StatusFailed, latest.ValidationStatus)

	again, err := env.store.ReadLatest(context.Background(), "001")
	require.NoError(t, err)
	assert.Equal(t, latest, again)
}

func TestRunSequential_WarningProceeds(t *testing.T) {
	env := newTestEnv(t)
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusWarning, "profiling", nil)
		},
		"ProfilingAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "complete", nil)
		},
	}

	result, err := env.router(rn).RunSequential(context.Background(), RunOptions{ProblemStatement: "001"})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, []string{"ExtractionAgent", "ProfilingAgent"}, rn.calls)
}

func TestRunSequential_RunnerErrorSynthesizesFailedRecord(t *testing.T) {
	env := newTestEnv(t)
	boom := fmt.Errorf("pandas exploded")
	rn := runner.Func(func(_ context.Context, ac agent.Context) (*handoff.Record, error) {
		return nil, boom
	})

	result, err := env.router(rn).RunSequential(context.Background(), RunOptions{ProblemStatement: "001"})
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Contains(t, result.HaltReason, "stage execution failed")

	latest, rerr := env.store.ReadLatest(context.Background(), "001")
	require.NoError(t, rerr)
	assert.Equal(t, handoff.StatusFailed, latest.ValidationStatus)
	assert.Equal(t, "pandas exploded", latest.Findings["error"])
}

func TestRunSequential_ReExtractionBounded(t *testing.T) {
	env := newTestEnv(t)
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "profiling", nil)
		},
		// Profiling keeps judging the data too poor to continue.
		"ProfilingAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "re_extraction", map[string]any{"overall_score": 23})
		},
	}

	result, err := env.router(rn, WithMaxReExtractions(2)).RunSequential(context.Background(), RunOptions{ProblemStatement: "001"})
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Contains(t, result.HaltReason, "re_extraction")
	// Initial extraction + 2 permitted loop-backs; the third request halts.
	extractions := 0
	for _, call := range rn.calls {
		if call == "ExtractionAgent" {
			extractions++
		}
	}
	assert.Equal(t, 3, extractions)
}

func TestRunSequential_DisabledStageHalts(t *testing.T) {
	env := newTestEnv(t)
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "profiling", nil)
		},
	}

	result, err := env.router(rn).RunSequential(context.Background(), RunOptions{
		ProblemStatement: "001",
		Agents:           []string{"extraction"},
	})
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Contains(t, result.HaltReason, "not enabled")
	assert.Equal(t, []string{"ExtractionAgent"}, rn.calls)
}

func TestRunSequential_ContextFlowsDownstream(t *testing.T) {
	env := newTestEnv(t)
	var edaContext agent.Context
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "profiling", map[string]any{"rows": 1042})
		},
		"ProfilingAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "complete", nil)
		},
	}
	base := rn.scripts["ProfilingAgent"]
	rn.scripts["ProfilingAgent"] = func(ac agent.Context) *handoff.Record {
		edaContext = ac
		return base(ac)
	}

	_, err := env.router(rn).RunSequential(context.Background(), RunOptions{ProblemStatement: "001"})
	require.NoError(t, err)

	// The profiling agent sees the extraction agent's findings and outputs.
	assert.Equal(t, 1042, edaContext.PreviousFindings["rows"])
	assert.NotEmpty(t, edaContext.Inputs["data"])
}

func TestRunSequential_AuditLogCoversEveryTransition(t *testing.T) {
	env := newTestEnv(t)
	rn := &scriptedRunner{env: env, t: t}
	rn.scripts = map[string]func(agent.Context) *handoff.Record{
		"ExtractionAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "profiling", nil)
		},
		"ProfilingAgent": func(ac agent.Context) *handoff.Record {
			return env.record(t, ac, handoff.StatusPassed, "complete", nil)
		},
	}

	rt := env.router(rn)
	result, err := rt.RunSequential(context.Background(), RunOptions{ProblemStatement: "001"})
	require.NoError(t, err)
	require.True(t, result.Completed)

	audit := rt.AuditLog()
	require.Len(t, audit, 2)
	assert.Equal(t, "extraction", audit[0].FromStage)
	assert.Equal(t, "profiling", audit[0].ToStage)
	assert.Equal(t, "PROCEED", audit[0].Decision)
	assert.Equal(t, "profiling", audit[1].FromStage)
	assert.Equal(t, "complete", audit[1].ToStage)
	for _, entry := range audit {
		assert.Equal(t, "001", entry.ProblemStatement)
		assert.Equal(t, result.RunID, entry.RunID)
	}
}

func TestNext_ReadsLatestAndResolves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := &handoff.Record{
		AgentName:           "ProfilingAgent",
		Timestamp:           "20250825_090100",
		Stage:               2,
		ProblemStatement:    "001",
		Outputs:             map[string]handoff.PathList{"report": {env.artifact(t, "profile.md")}},
		ValidationStatus:    handoff.StatusPassed,
		RecommendedNextStep: "eda",
	}
	_, err := env.store.Write(ctx, rec)
	require.NoError(t, err)

	rt := env.router(runner.Func(func(context.Context, agent.Context) (*handoff.Record, error) {
		return nil, fmt.Errorf("not invoked")
	}))

	def, res, terminal, err := rt.Next(ctx, "001")
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, gate.Proceed, res.Decision)
	assert.Equal(t, "EDAAgent", def.Agent)
}

func TestNext_NoChain(t *testing.T) {
	env := newTestEnv(t)
	rt := env.router(runner.Func(func(context.Context, agent.Context) (*handoff.Record, error) {
		return nil, nil
	}))

	_, _, _, err := rt.Next(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
