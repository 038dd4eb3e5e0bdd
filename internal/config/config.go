// Package config provides configuration loading and validation for the
// orchestrator CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/melissa/agent-orchestrator/internal/stage"
)

// Pipeline types accepted by the orchestrator.
const (
	PipelineSequential = "sequential"
	PipelineParallel   = "parallel"
	PipelineAdaptive   = "adaptive"
)

// AgentConfig is the per-stage block of the orchestrator configuration.
type AgentConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`      // nil means enabled
	Command      []string `yaml:"command,omitempty"`      // argv for the stage runner
	Instructions []string `yaml:"instructions,omitempty"` // operator instructions for the agent prompt
}

// IsEnabled reports whether the agent participates in pipeline runs.
func (a AgentConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Config is the orchestrator configuration, loaded from a YAML file at
// startup. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	PipelineType     string `yaml:"pipeline_type,omitempty"`
	VerificationMode string `yaml:"verification_mode,omitempty"`

	HandoffDir       string `yaml:"handoff_dir,omitempty"`
	ArchiveDir       string `yaml:"archive_dir,omitempty"`
	LogDir           string `yaml:"log_dir,omitempty"`
	RetentionDays    int    `yaml:"retention_days,omitempty"`
	MaxReExtractions int    `yaml:"max_reextractions,omitempty"`

	DatabaseURL string `yaml:"database_url,omitempty"`

	Agents map[string]AgentConfig `yaml:"agents,omitempty"`
}

// Defaults returns the built-in configuration values.
func Defaults() Config {
	return Config{
		PipelineType:     PipelineSequential,
		VerificationMode: "standard",
		HandoffDir:       filepath.Join("data", "3_interim", "agent_handoffs"),
		ArchiveDir:       filepath.Join("data", "4_archive", "agent_handoffs"),
		LogDir:           filepath.Join("logs", "orchestration"),
		RetentionDays:    30,
		MaxReExtractions: 3,
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.PipelineType {
	case "", PipelineSequential, PipelineParallel, PipelineAdaptive:
	default:
		return fmt.Errorf("config error: 'pipeline_type' must be one of %s, %s, %s",
			PipelineSequential, PipelineParallel, PipelineAdaptive)
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("config error: 'retention_days' must be non-negative")
	}
	if c.MaxReExtractions < 0 {
		return fmt.Errorf("config error: 'max_reextractions' must be non-negative")
	}

	for name := range c.Agents {
		if _, ok := stage.Registry[name]; !ok {
			return fmt.Errorf("config error: unknown agent %q in 'agents'", name)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. CLI flags are applied on top of the merged result.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.PipelineType == "" {
		result.PipelineType = defaults.PipelineType
	}
	if result.VerificationMode == "" {
		result.VerificationMode = defaults.VerificationMode
	}
	if result.HandoffDir == "" {
		result.HandoffDir = defaults.HandoffDir
	}
	if result.ArchiveDir == "" {
		result.ArchiveDir = defaults.ArchiveDir
	}
	if result.LogDir == "" {
		result.LogDir = defaults.LogDir
	}
	if result.RetentionDays == 0 {
		result.RetentionDays = defaults.RetentionDays
	}
	if result.MaxReExtractions == 0 {
		result.MaxReExtractions = defaults.MaxReExtractions
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	return result
}

// EnabledAgents returns the stage names enabled for runs, in pipeline order.
func (c *Config) EnabledAgents() []string {
	var enabled []string
	for _, name := range stage.Ordered() {
		ac, ok := c.Agents[name]
		if !ok || ac.IsEnabled() {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// InstructionsByStage returns the per-stage operator instructions.
func (c *Config) InstructionsByStage() map[string][]string {
	out := make(map[string][]string, len(c.Agents))
	for name, ac := range c.Agents {
		if len(ac.Instructions) > 0 {
			out[name] = ac.Instructions
		}
	}
	return out
}

// Commands returns the per-stage runner commands for enabled agents.
func (c *Config) Commands() map[string][]string {
	out := make(map[string][]string, len(c.Agents))
	for name, ac := range c.Agents {
		if ac.IsEnabled() && len(ac.Command) > 0 {
			out[name] = ac.Command
		}
	}
	return out
}
