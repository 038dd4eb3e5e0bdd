package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var archiveCommand = &cobra.Command{
	Use:   "archive",
	Short: "Archive handoff records older than the retention window",
	Long:  "Relocates handoff records older than the retention window into the archive area. Records are moved, never deleted.",
	RunE:  archiveCmd,
}

var (
	archiveConfigPath    string
	archiveHandoffDir    string
	archiveArchiveDir    string
	archiveDatabaseURL   string
	archiveRetentionDays int
)

func init() {
	archiveCommand.Flags().StringVar(&archiveConfigPath, "config", "", "Path to config.yml")
	archiveCommand.Flags().StringVar(&archiveHandoffDir, "handoff-dir", "", "Directory for handoff record files")
	archiveCommand.Flags().StringVar(&archiveArchiveDir, "archive-dir", "", "Directory for archived handoff records")
	archiveCommand.Flags().StringVar(&archiveDatabaseURL, "db-url", "", "PostgreSQL connection URL for the handoff store")
	archiveCommand.Flags().IntVar(&archiveRetentionDays, "retention-days", 0, "Retention window in days (default from config, 30)")

	rootCmd.AddCommand(archiveCommand)
}

func archiveCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(archiveConfigPath, false)
	if err != nil {
		return err
	}
	stringFlagChanged(cmd, "handoff-dir", &cfg.HandoffDir, archiveHandoffDir)
	stringFlagChanged(cmd, "archive-dir", &cfg.ArchiveDir, archiveArchiveDir)
	stringFlagChanged(cmd, "db-url", &cfg.DatabaseURL, archiveDatabaseURL)
	if cmd.Flags().Changed("retention-days") {
		cfg.RetentionDays = archiveRetentionDays
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	moved, err := st.Archive(ctx, time.Duration(cfg.RetentionDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("archive failed: %w", err)
	}

	fmt.Printf("Archived %d handoff record(s) older than %d days.\n", moved, cfg.RetentionDays)
	return nil
}
