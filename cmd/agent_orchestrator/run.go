package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/melissa/agent-orchestrator/internal/gate"
	"github.com/melissa/agent-orchestrator/internal/logging"
	"github.com/melissa/agent-orchestrator/internal/observability"
	"github.com/melissa/agent-orchestrator/internal/report"
	"github.com/melissa/agent-orchestrator/internal/router"
	"github.com/melissa/agent-orchestrator/internal/runner"
	"github.com/melissa/agent-orchestrator/internal/stage"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline for one problem statement",
	Long: `Drives a problem statement through the agent pipeline: each stage runner
produces a handoff record, the validation gate decides whether progression is
permitted, and the router follows the record's recommended next step until the
chain completes or halts.

Configuration can be loaded from a YAML file using --config. Command-line
arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath       string
	runProblemStatement string
	runTitle            string
	runPipelineType     string
	runAgents           string
	runResumeFrom       string
	runHandoffDir       string
	runArchiveDir       string
	runDatabaseURL      string
	runVerbose          bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.yml (values can be overridden by other flags)")
	runCommand.Flags().StringVarP(&runProblemStatement, "problem-statement", "p", "", "Problem statement identifier (e.g. 001)")
	runCommand.Flags().StringVar(&runTitle, "title", "", "Problem statement title for agent prompts")
	runCommand.Flags().StringVar(&runPipelineType, "pipeline-type", "", "Pipeline type: sequential|parallel|adaptive")
	runCommand.Flags().StringVar(&runAgents, "agents", "", "Comma-separated list of stages to enable (default: all)")
	runCommand.Flags().StringVar(&runResumeFrom, "resume-from", "", "Stage to resume the pipeline from")
	runCommand.Flags().StringVar(&runHandoffDir, "handoff-dir", "", "Directory for handoff record files")
	runCommand.Flags().StringVar(&runArchiveDir, "archive-dir", "", "Directory for archived handoff records")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL for the handoff store (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = runCommand.MarkFlagRequired("problem-statement")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(runConfigPath, runVerbose)
	if err != nil {
		return err
	}

	stringFlagChanged(cmd, "pipeline-type", &cfg.PipelineType, runPipelineType)
	stringFlagChanged(cmd, "handoff-dir", &cfg.HandoffDir, runHandoffDir)
	stringFlagChanged(cmd, "archive-dir", &cfg.ArchiveDir, runArchiveDir)
	stringFlagChanged(cmd, "db-url", &cfg.DatabaseURL, runDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	agents := cfg.EnabledAgents()
	if runAgents != "" {
		agents = nil
		for _, name := range strings.Split(runAgents, ",") {
			name = strings.TrimSpace(name)
			if _, ok := stage.Registry[name]; !ok {
				return fmt.Errorf("unknown agent %q in --agents", name)
			}
			agents = append(agents, name)
		}
	}

	if runResumeFrom != "" {
		if _, ok := stage.Registry[runResumeFrom]; !ok {
			return fmt.Errorf("unknown stage %q in --resume-from", runResumeFrom)
		}
	}

	log, err := logging.New(cfg.LogDir, "orchestrator", runVerbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agentNames := make(map[string]string, len(stage.Registry))
	for name, def := range stage.Registry {
		agentNames[def.Agent] = name
	}

	rt := router.New(st, gate.New(), &runner.ExecRunner{
		Commands: cfg.Commands(),
		Stages:   agentNames,
	}, log, router.WithMaxReExtractions(cfg.MaxReExtractions))

	result, err := rt.RunSequential(ctx, router.RunOptions{
		ProblemStatement: runProblemStatement,
		Title:            runTitle,
		ResumeFrom:       runResumeFrom,
		Agents:           agents,
		Instructions:     cfg.InstructionsByStage(),
	})
	if err != nil {
		return err
	}

	if runVerbose {
		printer := observability.NewPrinter(os.Stdout)
		for _, rec := range result.Records {
			printer.PrintRecord(rec)
		}
		printer.PrintAudit(rt.AuditLog())
	}

	if path, rerr := report.Write(cfg.LogDir, runProblemStatement, cfg.PipelineType, result.Records); rerr == nil {
		fmt.Printf("Execution report written to %s\n", path)
	}

	if !result.Completed {
		// Non-zero exit on any halted chain; the last record and reason
		// stay on disk for the operator.
		return fmt.Errorf("pipeline halted for %s: %s", runProblemStatement, result.HaltReason)
	}

	fmt.Printf("Pipeline complete for %s (%d handoffs).\n", runProblemStatement, len(result.Records))
	return nil
}
