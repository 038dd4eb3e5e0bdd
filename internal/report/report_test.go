package report

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melissa/agent-orchestrator/internal/handoff"
)

func testChain() []*handoff.Record {
	return []*handoff.Record{
		{
			AgentName:           "ExtractionAgent",
			Timestamp:           "20250825_090000",
			Stage:               1,
			ProblemStatement:    "001",
			Outputs:             map[string]handoff.PathList{"data": {"data/raw.csv"}},
			ValidationStatus:    handoff.StatusPassed,
			RecommendedNextStep: "profiling",
		},
		{
			AgentName:           "ProfilingAgent",
			Timestamp:           "20250825_091500",
			Stage:               2,
			ProblemStatement:    "001",
			Outputs:             map[string]handoff.PathList{"report": {"reports/profile.md"}},
			ValidationStatus:    handoff.StatusWarning,
			RecommendedNextStep: "cleaning",
		},
		{
			AgentName:           "CleaningAgent",
			Timestamp:           "20250825_093000",
			Stage:               3,
			ProblemStatement:    "001",
			ValidationStatus:    handoff.StatusFailed,
			Findings:            map[string]any{"error": "imputation produced NaNs"},
			RecommendedNextStep: "complete",
		},
	}
}

func TestBuild(t *testing.T) {
	out := Build("001", "sequential", testChain())

	assert.Contains(t, out, "# Pipeline Execution Report")
	assert.Contains(t, out, "Problem Statement: 001")
	assert.Contains(t, out, "Pipeline Type: sequential")
	assert.Contains(t, out, "Handoffs Recorded: 3")
	assert.Contains(t, out, "Warnings: 1")
	assert.Contains(t, out, "Failures: 1")
	assert.Contains(t, out, "ExtractionAgent (Stage 1)")
	assert.Contains(t, out, "ProfilingAgent (Stage 2)")
	assert.Contains(t, out, "imputation produced NaNs")
}

func TestBuild_EmptyChain(t *testing.T) {
	out := Build("001", "sequential", nil)
	assert.Contains(t, out, "Handoffs Recorded: 0")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "001", "sequential", testChain())
	require.NoError(t, err)
	assert.Contains(t, path, "pipeline_report_001.md")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ExtractionAgent")
}
