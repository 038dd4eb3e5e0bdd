// Package agent provides the execution context handed to a stage runner and
// the prompt templates that drive each analysis agent.
package agent

import (
	"fmt"
	"strings"

	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// Context is everything a stage runner needs to execute one agent for one
// problem statement: identity, instructions, and the previous stage's
// outputs and findings.
type Context struct {
	ProblemStatementNum   string            `json:"problem_statement_num"`
	ProblemStatementTitle string            `json:"problem_statement_title"`
	Timestamp             string            `json:"timestamp"`
	Stage                 int               `json:"stage"`
	AgentName             string            `json:"agent_name"`
	Instructions          []string          `json:"instructions,omitempty"`
	Inputs                map[string]string `json:"inputs,omitempty"`
	PreviousFindings      map[string]any    `json:"previous_findings,omitempty"`
}

// ToMap flattens the context into template substitution values. Inputs and
// previous findings are merged in last so a stage can reference upstream
// artifacts by their output kind.
func (c Context) ToMap() map[string]string {
	m := map[string]string{
		"problem_statement_num":   c.ProblemStatementNum,
		"problem_statement_title": c.ProblemStatementTitle,
		"timestamp":               c.Timestamp,
		"stage":                   fmt.Sprintf("%d", c.Stage),
		"agent_name":              c.AgentName,
		"instructions":            strings.Join(c.Instructions, "\n- "),
	}
	for k, v := range c.Inputs {
		m[k] = v
	}
	for k, v := range c.PreviousFindings {
		m[k] = fmt.Sprintf("%v", v)
	}
	return m
}

// MergeHandoff folds the previous stage's findings and outputs into the
// context, so the next agent sees where upstream artifacts live and what was
// learned about them.
func (c *Context) MergeHandoff(prev *handoff.Record) {
	if prev == nil {
		return
	}
	if c.PreviousFindings == nil {
		c.PreviousFindings = make(map[string]any, len(prev.Findings))
	}
	for k, v := range prev.Findings {
		c.PreviousFindings[k] = v
	}
	if c.Inputs == nil {
		c.Inputs = make(map[string]string, len(prev.Outputs))
	}
	for kind, paths := range prev.Outputs {
		c.Inputs[kind] = strings.Join(paths, ",")
	}
}

// Populate replaces {key} placeholders in a prompt template with context
// values. Unknown placeholders are left as-is rather than erased, so a
// half-filled template is visible in operator logs.
func Populate(template string, c Context) string {
	result := template
	for key, value := range c.ToMap() {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
