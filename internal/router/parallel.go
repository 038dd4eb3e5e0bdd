package router

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/stage"
)

// SubTask is one independent unit of work within a single stage, e.g. EDA's
// univariate, temporal, and spatial analyses. Each sub-task writes its own
// artifacts under non-overlapping paths.
type SubTask struct {
	Name string
	Run  func(ctx context.Context) (outputs map[string]handoff.PathList, findings map[string]any, err error)
}

// RunParallelStage executes a stage's sub-tasks concurrently and writes the
// stage's single handoff record only after every sub-task has finished: a
// join barrier, not a stream. Any sub-task error fails the whole stage; a
// synthetic failed record is persisted and the chain halts.
func (r *Router) RunParallelStage(
	ctx context.Context,
	problemStatement string,
	def stage.Definition,
	nextStep string,
	tasks []SubTask,
) (*handoff.Record, error) {
	g, gCtx := errgroup.WithContext(ctx)

	outputs := make(map[string]handoff.PathList)
	findings := make(map[string]any)
	var mu sync.Mutex

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			r.log.Info("starting sub-task",
				zap.String("problem_statement", problemStatement),
				zap.String("agent", def.Agent),
				zap.String("sub_task", task.Name))

			taskOutputs, taskFindings, err := task.Run(gCtx)
			if err != nil {
				return fmt.Errorf("sub-task %s failed: %w", task.Name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for kind, paths := range taskOutputs {
				if _, exists := outputs[kind]; exists {
					return fmt.Errorf("sub-task %s declared overlapping output kind %q", task.Name, kind)
				}
				outputs[kind] = paths
			}
			findings[task.Name] = taskFindings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		synthetic := r.synthesizeFailure(problemStatement, def, err)
		if _, werr := r.store.Write(ctx, synthetic); werr != nil {
			r.log.Error("failed to persist synthetic failure record", zap.Error(werr))
		}
		return synthetic, &handoff.StageExecutionError{Agent: def.Agent, Cause: err}
	}

	rec := &handoff.Record{
		AgentName:           def.Agent,
		Timestamp:           handoff.FormatTimestamp(r.now()),
		Stage:               def.Ordinal,
		ProblemStatement:    problemStatement,
		Outputs:             outputs,
		ValidationStatus:    handoff.StatusPassed,
		Findings:            findings,
		RecommendedNextStep: nextStep,
	}

	if _, err := r.store.Write(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
