package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/melissa/agent-orchestrator/internal/gate"
	"github.com/melissa/agent-orchestrator/internal/handoff"
	"github.com/melissa/agent-orchestrator/internal/observability"
)

var validateCommand = &cobra.Command{
	Use:   "validate <handoff.json>",
	Short: "Validate a handoff file and show its gate decision",
	Long:  "Checks a handoff JSON file against the record schema, verifies its declared output artifacts exist, and reports the gate decision it would receive.",
	Args:  cobra.ExactArgs(1),
	RunE:  validateCmd,
}

func init() {
	rootCmd.AddCommand(validateCommand)
}

func validateCmd(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read handoff file: %w", err)
	}

	if err := handoff.ValidateJSON(data); err != nil {
		return err
	}

	var rec handoff.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse handoff file: %w", err)
	}

	res := gate.New().Evaluate(&rec)

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintRecord(&rec)
	printer.PrintDecision(&rec, res)

	if res.Decision == gate.Halt {
		return fmt.Errorf("gate decision: HALT: %s", res.Reason)
	}
	return nil
}
