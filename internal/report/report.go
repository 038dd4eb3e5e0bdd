// Package report renders pipeline execution reports from handoff chains.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// Build renders a markdown execution report for one problem statement's
// chain.
func Build(problemStatement, pipelineType string, chain []*handoff.Record) string {
	var sb strings.Builder

	sb.WriteString("# Pipeline Execution Report\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	sb.WriteString("## Summary\n")
	sb.WriteString(fmt.Sprintf("- Problem Statement: %s\n", problemStatement))
	sb.WriteString(fmt.Sprintf("- Pipeline Type: %s\n", pipelineType))
	sb.WriteString(fmt.Sprintf("- Handoffs Recorded: %d\n", len(chain)))

	warnings, failures := 0, 0
	for _, rec := range chain {
		switch rec.ValidationStatus {
		case handoff.StatusWarning:
			warnings++
		case handoff.StatusFailed:
			failures++
		}
	}
	sb.WriteString(fmt.Sprintf("- Warnings: %d\n", warnings))
	sb.WriteString(fmt.Sprintf("- Failures: %d\n\n", failures))

	sb.WriteString("## Stage Transitions\n")
	for i, rec := range chain {
		sb.WriteString(fmt.Sprintf("\n### %d. %s (Stage %d)\n", i+1, rec.AgentName, rec.Stage))
		sb.WriteString(fmt.Sprintf("- Timestamp: %s\n", rec.Timestamp))
		sb.WriteString(fmt.Sprintf("- Validation Status: %s\n", rec.ValidationStatus))
		sb.WriteString(fmt.Sprintf("- Next Step: %s\n", rec.RecommendedNextStep))
		if len(rec.Outputs) > 0 {
			sb.WriteString(fmt.Sprintf("- Outputs: %d artifact kind(s)\n", len(rec.Outputs)))
		}
		if errMsg, ok := rec.Findings["error"]; ok {
			sb.WriteString(fmt.Sprintf("- Error: %v\n", errMsg))
		}
	}

	return sb.String()
}

// Write renders the report and writes it under dir as
// pipeline_report_{problem_statement}.md.
func Write(dir, problemStatement, pipelineType string, chain []*handoff.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("pipeline_report_%s.md", problemStatement))
	content := Build(problemStatement, pipelineType, chain)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
