// Package config provides unified configuration loading for panelwell.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/panelwell/panelwell/internal/simulate"
)

// FileName is the study configuration file inside the study directory.
const FileName = "study.yaml"

// StudyConfig contains all panelwell configuration settings.
type StudyConfig struct {
	// Study contains study-level metadata.
	Study StudySection `json:"study" yaml:"study"`

	// Scenario is the default data-generating scenario used by
	// simulate when no overrides are given on the command line.
	Scenario simulate.Scenario `json:"scenario" yaml:"scenario"`

	// Plot contains rendering defaults for the plot command.
	Plot PlotConfig `json:"plot" yaml:"plot"`

	// Logging contains settings for operational and run logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// StudySection holds study-level metadata.
type StudySection struct {
	// Name identifies the study in reports and exports.
	Name string `json:"name" yaml:"name"`
}

// PlotConfig configures SVG output dimensions and binning.
type PlotConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Bins   int `json:"bins" yaml:"bins"`
}

// LoggingConfig configures panelwell's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run logging to .panelwell/runs.jsonl.
	// "trace" additionally includes optimizer iteration detail.
	Level string `json:"level" yaml:"level"`
}

// Default returns a StudyConfig with sensible defaults.
func Default() *StudyConfig {
	return &StudyConfig{
		Study: StudySection{
			Name: "parenting-wellbeing",
		},
		Scenario: simulate.Default(),
		Plot: PlotConfig{
			Width:  900,
			Height: 560,
			Bins:   20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration for the study rooted at root.
// Order: defaults -> root/.panelwell/study.yaml -> environment variables
func Load(root string) (*StudyConfig, error) {
	config := Default()

	configPath := filepath.Join(root, ".panelwell", FileName)
	if _, statErr := os.Stat(configPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*StudyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration as YAML to path, creating the parent
// directory if needed.
func (c *StudyConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *StudyConfig) Validate() error {
	if c.Study.Name == "" {
		return fmt.Errorf("study name must not be empty")
	}

	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}

	if c.Plot.Width < 100 || c.Plot.Height < 100 {
		return fmt.Errorf("plot dimensions must be at least 100x100, got %dx%d", c.Plot.Width, c.Plot.Height)
	}
	if c.Plot.Bins < 2 {
		return fmt.Errorf("plot bins must be at least 2, got %d", c.Plot.Bins)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *StudyConfig) {
	if v := os.Getenv("PANELWELL_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Scenario.Seed = n
		}
	}

	if v := os.Getenv("PANELWELL_SUBJECTS_PER_GROUP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scenario.SubjectsPerGroup = n
		}
	}

	if v := os.Getenv("PANELWELL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
