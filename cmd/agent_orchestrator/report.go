package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melissa/agent-orchestrator/internal/report"
)

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Generate an execution report for a problem statement",
	RunE:  reportCmd,
}

var (
	reportConfigPath       string
	reportProblemStatement string
	reportHandoffDir       string
	reportDatabaseURL      string
	reportStdout           bool
)

func init() {
	reportCommand.Flags().StringVar(&reportConfigPath, "config", "", "Path to config.yml")
	reportCommand.Flags().StringVarP(&reportProblemStatement, "problem-statement", "p", "", "Problem statement identifier")
	reportCommand.Flags().StringVar(&reportHandoffDir, "handoff-dir", "", "Directory for handoff record files")
	reportCommand.Flags().StringVar(&reportDatabaseURL, "db-url", "", "PostgreSQL connection URL for the handoff store")
	reportCommand.Flags().BoolVar(&reportStdout, "stdout", false, "Print the report instead of writing it to the log directory")

	_ = reportCommand.MarkFlagRequired("problem-statement")

	rootCmd.AddCommand(reportCommand)
}

func reportCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(reportConfigPath, false)
	if err != nil {
		return err
	}
	stringFlagChanged(cmd, "handoff-dir", &cfg.HandoffDir, reportHandoffDir)
	stringFlagChanged(cmd, "db-url", &cfg.DatabaseURL, reportDatabaseURL)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	chain, err := st.ReadChain(ctx, reportProblemStatement)
	if err != nil {
		return fmt.Errorf("failed to read chain for %s: %w", reportProblemStatement, err)
	}

	if reportStdout {
		fmt.Print(report.Build(reportProblemStatement, cfg.PipelineType, chain))
		return nil
	}

	path, err := report.Write(cfg.LogDir, reportProblemStatement, cfg.PipelineType, chain)
	if err != nil {
		return err
	}
	fmt.Printf("Execution report written to %s\n", path)
	return nil
}
