// Package config loads process configuration from the environment and
// manages the on-disk target store.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration read from the environment.
type Config struct {
	LLM      LLMConfig
	Notion   NotionConfig
	Agent    AgentConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LLMConfig selects and authenticates the completion endpoint.
type LLMConfig struct {
	Provider       string        `env:"LLM_PROVIDER" envDefault:"openai"`
	APIKey         string        `env:"LLM_API_KEY,required,notEmpty"`
	BaseURL        string        `env:"LLM_BASE_URL"`
	Model          string        `env:"LLM_MODEL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"0"`
}

// NotionConfig authenticates the document service and locates the target store.
type NotionConfig struct {
	APIKey     string `env:"NOTION_API_KEY,required,notEmpty"`
	Version    string `env:"NOTION_VERSION" envDefault:"2022-06-28"`
	BaseURL    string `env:"NOTION_BASE_URL" envDefault:"https://api.notion.com"`
	ConfigPath string `env:"NOTION_CONFIG_PATH" envDefault:"notion_config.json"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	MaxIterations   int           `env:"AGENT_MAX_ITERATIONS" envDefault:"10"`
	StopAfterFinish bool          `env:"AGENT_STOP_AFTER_FINISH" envDefault:"false"`
	ToolTimeout     time.Duration `env:"TOOL_TIMEOUT" envDefault:"30s"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.BaseURL = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/"), "/chat/completions")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.Provider == "" {
		errs = append(errs, errors.New("LLM_PROVIDER must not be empty"))
	}
	if c.LLM.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.LLM.RequestTimeout))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.LLM.MaxRetries))
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("AGENT_MAX_ITERATIONS must be at least 1, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.ToolTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TOOL_TIMEOUT must be positive, got %s", c.Agent.ToolTimeout))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
