package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melissa/agent-orchestrator/internal/agent"
	"github.com/melissa/agent-orchestrator/internal/handoff"
)

func testContext() agent.Context {
	return agent.Context{
		ProblemStatementNum:   "001",
		ProblemStatementTitle: "Workforce Capacity Mismatch",
		Timestamp:             "20250825_090000",
		Stage:                 2,
		AgentName:             "ProfilingAgent",
	}
}

func writeHandoffFile(t *testing.T, dir string) string {
	t.Helper()

	artifact := filepath.Join(dir, "profile.md")
	require.NoError(t, os.WriteFile(artifact, []byte("profile"), 0o644))

	rec := handoff.Record{
		AgentName:           "ProfilingAgent",
		Timestamp:           "20250825_090000",
		Stage:               2,
		ProblemStatement:    "001",
		Outputs:             map[string]handoff.PathList{"report": {artifact}},
		ValidationStatus:    handoff.StatusPassed,
		RecommendedNextStep: "eda",
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	path := filepath.Join(dir, "handoff.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExecRunner_ReadsHandoffFromStdout(t *testing.T) {
	dir := t.TempDir()
	handoffPath := writeHandoffFile(t, dir)

	r := &ExecRunner{
		Commands: map[string][]string{"profiling": {"sh", "-c", "echo " + handoffPath}},
		Stages:   map[string]string{"ProfilingAgent": "profiling"},
	}

	rec, err := r.Run(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "ProfilingAgent", rec.AgentName)
	assert.Equal(t, "eda", rec.RecommendedNextStep)
}

func TestExecRunner_NoCommandConfigured(t *testing.T) {
	r := &ExecRunner{
		Commands: map[string][]string{},
		Stages:   map[string]string{"ProfilingAgent": "profiling"},
	}

	_, err := r.Run(context.Background(), testContext())
	require.Error(t, err)

	var execErr *handoff.StageExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "ProfilingAgent", execErr.Agent)
}

func TestExecRunner_UnknownAgent(t *testing.T) {
	r := &ExecRunner{Commands: map[string][]string{}, Stages: map[string]string{}}

	_, err := r.Run(context.Background(), agent.Context{AgentName: "MysteryAgent"})
	require.Error(t, err)

	var execErr *handoff.StageExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestExecRunner_CommandFailure(t *testing.T) {
	r := &ExecRunner{
		Commands: map[string][]string{"profiling": {"sh", "-c", "echo boom >&2; exit 3"}},
		Stages:   map[string]string{"ProfilingAgent": "profiling"},
	}

	_, err := r.Run(context.Background(), testContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecRunner_EmptyStdout(t *testing.T) {
	r := &ExecRunner{
		Commands: map[string][]string{"profiling": {"sh", "-c", "true"}},
		Stages:   map[string]string{"ProfilingAgent": "profiling"},
	}

	_, err := r.Run(context.Background(), testContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handoff path")
}

func TestExecRunner_RejectsInvalidHandoffJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agent_name": "X"}`), 0o644))

	r := &ExecRunner{
		Commands: map[string][]string{"profiling": {"sh", "-c", "echo " + path}},
		Stages:   map[string]string{"ProfilingAgent": "profiling"},
	}

	_, err := r.Run(context.Background(), testContext())
	assert.Error(t, err)
}
