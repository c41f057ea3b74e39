// Package config loads careahead settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/careahead/vitalscope/internal/baseline"
	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/llm"
	"github.com/careahead/vitalscope/internal/logging"
)

// Environment variables that override file settings.
const (
	EnvProvider = "CAREAHEAD_LLM_PROVIDER"
	EnvModel    = "CAREAHEAD_LLM_MODEL"
	EnvEndpoint = "CAREAHEAD_LLM_ENDPOINT"
	EnvDatabase = "CAREAHEAD_DB"
	EnvLogLevel = "CAREAHEAD_LOG_LEVEL"
)

// DefaultAPIKeyEnv names the variable holding the Gemini key.
const DefaultAPIKeyEnv = "GEMINI_API_KEY"

// Config is the complete application configuration.
type Config struct {
	Storage  StorageConfig   `yaml:"storage"`
	LLM      LLMConfig       `yaml:"llm"`
	Baseline baseline.Config `yaml:"baseline"`
	Reveal   RevealConfig    `yaml:"reveal"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// StorageConfig locates the sample database, the insight archive and the
// default workbook export.
type StorageConfig struct {
	Database string `yaml:"database"`
	Archive  string `yaml:"archive"`
	Export   string `yaml:"export"`
}

// LLMConfig selects the text-generation provider. The key itself is never
// stored here; APIKeyEnv names the variable it is read from.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	Endpoint          string        `yaml:"endpoint"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Temperature       float32       `yaml:"temperature"`
	MaxOutputTokens   int32         `yaml:"max_output_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	Retries           int           `yaml:"retries"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
}

// RevealConfig tunes the progressive reveal of generated insights.
type RevealConfig struct {
	Step   time.Duration `yaml:"step"`
	Format string        `yaml:"format"`
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Database: "careahead.db",
			Archive:  "insights.json",
			Export:   "careahead.xlsx",
		},
		LLM: LLMConfig{
			Provider:          llm.ProviderGemini,
			APIKeyEnv:         DefaultAPIKeyEnv,
			Temperature:       0.4,
			MaxOutputTokens:   512,
			Timeout:           3 * time.Minute,
			RequestsPerMinute: 10,
		},
		Baseline: baseline.DefaultConfig(),
		Reveal: RevealConfig{
			Step:   400 * time.Millisecond,
			Format: insight.FormatJSON.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "careahead.log",
		},
	}
}

// Load reads filename over the defaults and applies environment overrides.
// An empty filename skips the file.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides settings from the CAREAHEAD_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvProvider, &c.LLM.Provider)
	set(EnvModel, &c.LLM.Model)
	set(EnvEndpoint, &c.LLM.Endpoint)
	set(EnvDatabase, &c.Storage.Database)
	set(EnvLogLevel, &c.Logging.Level)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderGemini, llm.ProviderOllama, llm.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of gemini, ollama, openai", c.LLM.Provider))
	}
	if c.LLM.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("llm.requests_per_minute must not be negative"))
	}
	if c.Storage.Database == "" {
		errs = append(errs, fmt.Errorf("storage.database is required"))
	}
	if c.Reveal.Step < 0 {
		errs = append(errs, fmt.Errorf("reveal.step must not be negative"))
	}
	if _, err := insight.ParseFormat(c.Reveal.Format); err != nil {
		errs = append(errs, fmt.Errorf("reveal.format: %w", err))
	}
	if err := c.Baseline.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// APIKey reads the provider credential from the configured variable.
func (c Config) APIKey(getenv func(string) string) string {
	name := c.LLM.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	return strings.TrimSpace(getenv(name))
}

// LLMOptions converts the settings into an llm.Config; apiKey is passed in
// by the caller.
func (c Config) LLMOptions(apiKey string, logger *zap.Logger) llm.Config {
	return llm.Config{
		Provider:          c.LLM.Provider,
		Model:             c.LLM.Model,
		Endpoint:          c.LLM.Endpoint,
		APIKey:            apiKey,
		Temperature:       c.LLM.Temperature,
		MaxOutputTokens:   c.LLM.MaxOutputTokens,
		Timeout:           c.LLM.Timeout,
		Retries:           c.LLM.Retries,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		Logger:            logger,
	}
}

// LoggingOptions converts the logging section for logging.New.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format, File: c.Logging.File}
}

// Format returns the configured insight output format.
func (c Config) Format() insight.Format {
	f, _ := insight.ParseFormat(c.Reveal.Format)
	return f
}
