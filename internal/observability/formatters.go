// Package observability provides formatted output utilities for verbose CLI
// mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/melissa/agent-orchestrator/internal/gate"
	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/router"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxFindingsToShow is the default number of findings keys to display
	maxFindingsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRecord outputs a human-readable summary of one handoff record.
func (p *Printer) PrintRecord(rec *handoff.Record) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Agent:     %s (stage %d)\n", rec.AgentName, rec.Stage))
	sb.WriteString(fmt.Sprintf("Timestamp: %s\n", rec.Timestamp))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", rec.ValidationStatus))
	sb.WriteString(fmt.Sprintf("Next step: %s\n", rec.RecommendedNextStep))

	if len(rec.Outputs) > 0 {
		sb.WriteString("\nOutputs:\n")
		for kind, paths := range rec.Outputs {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", kind, strings.Join(paths, ", ")))
		}
	}

	if len(rec.Findings) > 0 {
		sb.WriteString("\nFindings:\n")
		shown := 0
		for key, value := range rec.Findings {
			if shown >= maxFindingsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.Findings)-shown))
				break
			}
			sb.WriteString(fmt.Sprintf("  %s: %v\n", key, value))
			shown++
		}
	}

	p.printBox(fmt.Sprintf("Handoff: %s", rec.ProblemStatement), sb.String())
}

// PrintChain outputs the transition history for one problem statement.
func (p *Printer) PrintChain(problemStatement string, chain []*handoff.Record) {
	var sb strings.Builder
	for i, rec := range chain {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s -> %s (%s)\n",
			i+1, rec.Timestamp, rec.AgentName, rec.RecommendedNextStep, rec.ValidationStatus))
	}
	p.printBox(fmt.Sprintf("Chain: %s (%d records)", problemStatement, len(chain)), sb.String())
}

// PrintDecision outputs a gate decision for one record.
func (p *Printer) PrintDecision(rec *handoff.Record, res gate.Result) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Decision: %s\n", res.Decision))
	if res.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason:   %s\n", res.Reason))
	}
	p.printBox(fmt.Sprintf("Gate: %s stage %d", rec.AgentName, rec.Stage), sb.String())
}

// PrintAudit outputs the routing decisions from one run.
func (p *Printer) PrintAudit(entries []router.AuditEntry) {
	var sb strings.Builder
	for _, e := range entries {
		to := e.ToStage
		if to == "" {
			to = "-"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s -> %s (%s)\n",
			e.Timestamp, e.ProblemStatement, e.FromStage, to, e.Decision))
	}
	p.printBox("Routing audit", sb.String())
}
