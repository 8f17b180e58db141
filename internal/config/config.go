package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/gosweep/internal/analyzer"
	"github.com/me/gosweep/internal/publish"
	"github.com/me/gosweep/pkg/model"
)

// DefaultTemplateName is the template file looked up in the workspace when
// Template is empty.
const DefaultTemplateName = "epos.template.properties"

// RunnerConfig holds configuration for one gosweep batch.
type RunnerConfig struct {
	Workspace string   `yaml:"workspace"` // Simulator workspace; child working directory
	Template  string   `yaml:"template"`  // Template properties (default <workspace>/epos.template.properties)
	Params    string   `yaml:"params"`    // Parameter YAML file
	Command   []string `yaml:"command"`   // Executable and fixed args; the config path is appended
	Report    string   `yaml:"report"`    // CSV report path

	Parallelism       int           `yaml:"parallelism"`
	MinLaunchInterval time.Duration `yaml:"min_launch_interval"`
	RunTimeout        time.Duration `yaml:"run_timeout"` // 0 disables

	Analyzer    string `yaml:"analyzer"`
	PrintParams bool   `yaml:"print_params"`
	PrintBest   bool   `yaml:"print_best"`

	RequiredFiles []string `yaml:"required_files"` // Relative to Workspace
	RequiredDirs  []string `yaml:"required_dirs"`  // Relative to Workspace

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
	LogPath   string `yaml:"log_path"`   // Runner log file; empty falls back to GOSWEEP_LOG_PATH

	Ledger     string         `yaml:"ledger"`      // SQLite run ledger; empty disables
	StatusAddr string         `yaml:"status_addr"` // Status API listen address; empty disables
	Publish    publish.Config `yaml:"publish"`
}

// DefaultRunnerConfig returns sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workspace:         "workspace",
		Params:            "params.yaml",
		Command:           []string{"java", "-jar", "IEPOS-Tutorial.jar"},
		Report:            "result.csv",
		Parallelism:       4,
		MinLaunchInterval: time.Second,
		Analyzer:          analyzer.MinGlobalCostName,
		PrintParams:       true,
		PrintBest:         true,
		RequiredFiles:     []string{"IEPOS-Tutorial.jar"},
		RequiredDirs:      []string{"conf", "datasets"},
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load overlays the YAML file at path onto DefaultRunnerConfig.
func Load(path string) (RunnerConfig, error) {
	cfg := DefaultRunnerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &model.SetupError{Field: "config", Message: "cannot read " + path, Err: err}
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML data onto cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *RunnerConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &model.SetupError{Field: "config", Message: "invalid YAML", Err: err}
	}
	return nil
}

// TemplatePath returns Template, or the default template inside Workspace.
func (c RunnerConfig) TemplatePath() string {
	if c.Template != "" {
		return c.Template
	}
	return filepath.Join(c.Workspace, DefaultTemplateName)
}

// Validate checks the configuration before any file is touched.
func (c RunnerConfig) Validate() error {
	if c.Workspace == "" {
		return model.NewSetupError("workspace", "is required")
	}
	if c.Params == "" {
		return model.NewSetupError("params", "is required")
	}
	if len(c.Command) == 0 || c.Command[0] == "" {
		return model.NewSetupError("command", "is required")
	}
	if c.Report == "" {
		return model.NewSetupError("report", "is required")
	}
	if c.Parallelism < 1 {
		return model.NewSetupError("parallelism", "must be >= 1, got %d", c.Parallelism)
	}
	if c.MinLaunchInterval < 0 {
		return model.NewSetupError("min_launch_interval", "must not be negative, got %s", c.MinLaunchInterval)
	}
	if c.RunTimeout < 0 {
		return model.NewSetupError("run_timeout", "must not be negative, got %s", c.RunTimeout)
	}
	if c.Analyzer == "" {
		return model.NewSetupError("analyzer", "is required")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return model.NewSetupError("log_format", "must be text or json, got %q", c.LogFormat)
	}
	return c.Publish.Validate()
}
