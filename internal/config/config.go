package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"tscompose/internal/errors"
)

// Config is the complete application configuration. Values are loaded from a
// YAML file and overridden by TSCOMPOSE_* environment variables.
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Compose ComposeConfig `yaml:"compose" envconfig:"COMPOSE"`
	Merge   MergeConfig   `yaml:"merge" envconfig:"MERGE"`

	// Definitions configure the priorities and filling strategies of a
	// composition run. YAML only; too structured for environment variables.
	Definitions DefinitionsConfig `yaml:"definitions" ignored:"true"`
}

// LoggingConfig contains logging configuration. Defaults come from Default()
// rather than envconfig default tags, so settings loaded from the YAML file
// survive the environment pass when no override variable is set.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stderr stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ComposeConfig contains the runtime knobs of a composition run.
type ComposeConfig struct {
	// Workers bounds parallel combination processing; 0 means one per CPU.
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
	// TimeFrom/TimeTo restrict the input time range, inclusive, as
	// YYYY-MM-DD. Empty means unbounded.
	TimeFrom string `yaml:"time_from" envconfig:"TIME_FROM" validate:"omitempty,datetime=2006-01-02"`
	TimeTo   string `yaml:"time_to" envconfig:"TIME_TO" validate:"omitempty,datetime=2006-01-02"`
}

// MergeConfig contains tolerance-bounded merge configuration.
type MergeConfig struct {
	Tolerance          float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gte=0"`
	ErrorOnDiscrepancy bool    `yaml:"error_on_discrepancy" envconfig:"ERROR_ON_DISCREPANCY"`
}

var validate = validator.New()

// Load loads the configuration from the given YAML file (may be empty for
// environment-only configuration) with environment variables taking
// precedence, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("reading config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("parsing config file %s", path), err)
		}
	}

	if err := envconfig.Process("TSCOMPOSE", cfg); err != nil {
		return nil, errors.NewConfigError("loading config from environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including the definitions when present.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewConfigError("config validation failed", err)
	}
	if !c.Definitions.Empty() {
		if err := c.Definitions.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the default configuration without definitions.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stderr",
			FilePath: "logs/tscompose.log",
		},
		Compose: ComposeConfig{
			Workers: 0,
		},
		Merge: MergeConfig{
			Tolerance:          0.01,
			ErrorOnDiscrepancy: true,
		},
	}
}
