package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/melissa/agent-orchestrator/internal/observability"
)

var chainCommand = &cobra.Command{
	Use:   "chain",
	Short: "Print the handoff chain for a problem statement",
	Long:  "Reads all handoff records for a problem statement, ordered by timestamp, for audit and debugging.",
	RunE:  chainCmd,
}

var (
	chainConfigPath       string
	chainProblemStatement string
	chainHandoffDir       string
	chainDatabaseURL      string
	chainVerbose          bool
)

func init() {
	chainCommand.Flags().StringVar(&chainConfigPath, "config", "", "Path to config.yml")
	chainCommand.Flags().StringVarP(&chainProblemStatement, "problem-statement", "p", "", "Problem statement identifier")
	chainCommand.Flags().StringVar(&chainHandoffDir, "handoff-dir", "", "Directory for handoff record files")
	chainCommand.Flags().StringVar(&chainDatabaseURL, "db-url", "", "PostgreSQL connection URL for the handoff store")
	chainCommand.Flags().BoolVarP(&chainVerbose, "verbose", "v", false, "Print each record in full")

	_ = chainCommand.MarkFlagRequired("problem-statement")

	rootCmd.AddCommand(chainCommand)
}

func chainCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(chainConfigPath, false)
	if err != nil {
		return err
	}
	stringFlagChanged(cmd, "handoff-dir", &cfg.HandoffDir, chainHandoffDir)
	stringFlagChanged(cmd, "db-url", &cfg.DatabaseURL, chainDatabaseURL)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	chain, err := st.ReadChain(ctx, chainProblemStatement)
	if err != nil {
		return fmt.Errorf("failed to read chain for %s: %w", chainProblemStatement, err)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintChain(chainProblemStatement, chain)
	if chainVerbose {
		for _, rec := range chain {
			printer.PrintRecord(rec)
		}
	}
	return nil
}
