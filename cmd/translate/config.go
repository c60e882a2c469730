package main

import (
	"fmt"
	"time"

	"github.com/kbukum/stageflow/config"
	"github.com/kbukum/stageflow/llm"
	"github.com/kbukum/stageflow/observability"
	"github.com/kbukum/stageflow/validation"
)

// Config is the configuration of the translate binary.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Tracing  observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics  observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
	LLM      llm.Config                 `yaml:"llm" mapstructure:"llm"`
	Workflow WorkflowConfig             `yaml:"workflow" mapstructure:"workflow"`
	Journal  JournalConfig              `yaml:"journal" mapstructure:"journal"`
}

// WorkflowConfig selects the pipeline and its input.
type WorkflowConfig struct {
	// Definition is the path of the pipeline YAML.
	Definition string `yaml:"definition" mapstructure:"definition" validate:"required"`
	// Languages are registered as translator capabilities named after the
	// lower-cased language.
	Languages []string `yaml:"languages" mapstructure:"languages" validate:"required,min=1,unique"`
	Input     string   `yaml:"input" mapstructure:"input" validate:"required"`
	// StageTimeout bounds each stage. Zero disables it.
	StageTimeout time.Duration `yaml:"stage_timeout" mapstructure:"stage_timeout" validate:"gte=0"`
	StageEvents  bool          `yaml:"stage_events" mapstructure:"stage_events"`
}

// JournalConfig enables the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// ApplyDefaults fills unset fields of every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = c.Version
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	if c.Metrics.ServiceVersion == "" {
		c.Metrics.ServiceVersion = c.Version
	}
	if c.Metrics.Environment == "" {
		c.Metrics.Environment = c.Environment
	}

	c.LLM.ApplyDefaults()

	if c.Workflow.Definition == "" {
		c.Workflow.Definition = "pipeline.yaml"
	}
	if len(c.Workflow.Languages) == 0 {
		c.Workflow.Languages = []string{"French", "Spanish", "English"}
	}
	if c.Journal.DSN == "" {
		c.Journal.DSN = "file:stageflow.db"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := validation.Validate(c.Workflow); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}
