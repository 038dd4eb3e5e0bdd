package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/melissa/agent-orchestrator/internal/agent"
	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// DefaultStageTimeout is the maximum time one agent invocation may run.
const DefaultStageTimeout = 30 * time.Minute

// invocation is the JSON document an ExecRunner writes to the agent
// command's stdin.
type invocation struct {
	Prompt  string        `json:"prompt"`
	Context agent.Context `json:"context"`
}

// ExecRunner invokes each agent as a configured subprocess. The populated
// prompt template and the agent context are passed as JSON on stdin; the
// command must print the path of the handoff JSON file it wrote as the last
// line of stdout.
type ExecRunner struct {
	// Commands maps a stage name to its argv. A stage without an entry is
	// an execution failure.
	Commands map[string][]string
	// Stages maps an agent name (e.g. "ProfilingAgent") back to its stage
	// name for template and command lookup.
	Stages map[string]string
	// Timeout bounds one invocation; zero means DefaultStageTimeout.
	Timeout time.Duration
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, ac agent.Context) (*handoff.Record, error) {
	stageName, ok := r.Stages[ac.AgentName]
	if !ok {
		return nil, &handoff.StageExecutionError{
			Agent: ac.AgentName,
			Cause: fmt.Errorf("no stage mapping for agent"),
		}
	}

	argv, ok := r.Commands[stageName]
	if !ok || len(argv) == 0 {
		return nil, &handoff.StageExecutionError{
			Agent: ac.AgentName,
			Cause: fmt.Errorf("no command configured for stage %q", stageName),
		}
	}

	tmpl, err := agent.Template(stageName)
	if err != nil {
		return nil, &handoff.StageExecutionError{Agent: ac.AgentName, Cause: err}
	}

	stdin, err := json.Marshal(invocation{
		Prompt:  agent.Populate(tmpl, ac),
		Context: ac,
	})
	if err != nil {
		return nil, &handoff.StageExecutionError{Agent: ac.AgentName, Cause: err}
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultStageTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &handoff.StageExecutionError{
			Agent: ac.AgentName,
			Cause: fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String())),
		}
	}

	handoffPath := lastLine(stdout.String())
	if handoffPath == "" {
		return nil, &handoff.StageExecutionError{
			Agent: ac.AgentName,
			Cause: fmt.Errorf("agent command produced no handoff path on stdout"),
		}
	}

	data, err := os.ReadFile(handoffPath)
	if err != nil {
		return nil, &handoff.StageExecutionError{
			Agent: ac.AgentName,
			Cause: fmt.Errorf("failed to read handoff file %s: %w", handoffPath, err),
		}
	}

	if err := handoff.ValidateJSON(data); err != nil {
		return nil, &handoff.StageExecutionError{Agent: ac.AgentName, Cause: err}
	}

	var rec handoff.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &handoff.StageExecutionError{Agent: ac.AgentName, Cause: err}
	}
	return &rec, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
