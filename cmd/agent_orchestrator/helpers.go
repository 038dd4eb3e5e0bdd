package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/melissa/agent-orchestrator/internal/config"
	"github.com/melissa/agent-orchestrator/internal/store"
)

// loadConfig loads the YAML config (if given), validates it, and merges
// defaults. Flag overrides are applied by each command before calling this.
func loadConfig(configPath string, verbose bool) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
		if verbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", configPath)
		}
	}
	return cfg.MergeWithDefaults(config.Defaults()), nil
}

// openStore selects the handoff store: PostgreSQL when a database URL is
// configured, falling back to the file store with a warning when the
// connection fails. Persistence degradation is operator-visible, never
// fatal.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewFileStore(cfg.HandoffDir, cfg.ArchiveDir), func() {}, nil
	}

	pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("Warning: Failed to connect to database: %v\n", err)
		fmt.Printf("Continuing with file-based handoff store...\n")
		return store.NewFileStore(cfg.HandoffDir, cfg.ArchiveDir), func() {}, nil
	}

	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// stringFlagChanged applies a flag override only when the user set it.
func stringFlagChanged(cmd *cobra.Command, name string, dst *string, value string) {
	if cmd.Flags().Changed(name) {
		*dst = value
	}
}
