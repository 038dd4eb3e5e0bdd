// Package main provides the entry point for the multi-agent pipeline
// orchestrator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agent_orchestrator",
	Short: "Multi-agent analysis pipeline orchestrator",
	Long:  "Coordinates the extraction, profiling, cleaning, EDA, modeling, visualization, and reporting agents over file-based JSON handoff records, gating each transition on the upstream agent's validation status.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
