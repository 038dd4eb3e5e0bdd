package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/melissa/agent-orchestrator/internal/gate"
	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/router"
)

func testRecord() *handoff.Record {
	return &handoff.Record{
		AgentName:           "ProfilingAgent",
		Timestamp:           "20250825_090000",
		Stage:               2,
		ProblemStatement:    "001",
		Outputs:             map[string]handoff.PathList{"report": {"reports/profile.md"}},
		ValidationStatus:    handoff.StatusPassed,
		Findings:            map[string]any{"overall_score": 95},
		RecommendedNextStep: "eda",
	}
}

func TestPrintRecord(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRecord(testRecord())

	out := buf.String()
	assert.Contains(t, out, "ProfilingAgent")
	assert.Contains(t, out, "001")
	assert.Contains(t, out, "eda")
}

func TestPrintRecord_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRecord(nil)
	assert.Empty(t, buf.String())
}

func TestPrintChain(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintChain("001", []*handoff.Record{testRecord()})

	out := buf.String()
	assert.Contains(t, out, "001")
	assert.Contains(t, out, "ProfilingAgent")
	assert.Contains(t, out, "1 records")
}

func TestPrintDecision(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDecision(testRecord(), gate.Result{Decision: gate.Halt, Reason: "missing artifact"})

	out := buf.String()
	assert.Contains(t, out, "HALT")
	assert.Contains(t, out, "missing artifact")
}

func TestPrintAudit(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAudit([]router.AuditEntry{
		{ProblemStatement: "001", FromStage: "profiling", ToStage: "eda", Decision: "PROCEED", Timestamp: "20250825_090100"},
	})

	out := buf.String()
	assert.Contains(t, out, "profiling")
	assert.Contains(t, out, "PROCEED")
}
