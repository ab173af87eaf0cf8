// Package config loads and validates the barista configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the bot.
type Config struct {
	Slack     SlackConfig     `yaml:"slack"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Matching  MatchingConfig  `yaml:"matching"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Daily     DailyConfig     `yaml:"daily_question"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SlackConfig holds Slack credentials and channel routing.
type SlackConfig struct {
	// BotToken is the xoxb- token for Web API calls.
	BotToken string `yaml:"bot_token"`
	// AppToken is the xapp- token for Socket Mode.
	AppToken string `yaml:"app_token"`
	// HomeChannel receives the startup greeting and the daily question.
	HomeChannel string `yaml:"home_channel"`
	// AdminChannel receives match reports and anonymous feedback.
	// Optional; reporting is skipped when empty.
	AdminChannel string `yaml:"admin_channel"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig selects and configures the text generation provider.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint, e.g. Groq)
	// or "anthropic".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// BaseURL overrides the provider endpoint (used for Groq).
	BaseURL string `yaml:"base_url"`
}

// KnowledgeConfig configures the knowledge base.
type KnowledgeConfig struct {
	// Dir is the directory scanned for .md and .txt documents.
	Dir string `yaml:"dir"`
}

// MatchingConfig holds coffee-matching timing knobs.
type MatchingConfig struct {
	// CooldownMinutes is the minimum gap between two requests by one user.
	CooldownMinutes int `yaml:"cooldown_minutes"`
	// WaitTimeoutMinutes is how long an unmatched request stays in the pool.
	WaitTimeoutMinutes int `yaml:"wait_timeout_minutes"`
	// ChatDurationMinutes is how long a match conversation stays open.
	ChatDurationMinutes int `yaml:"chat_duration_minutes"`
}

// Cooldown returns the request cooldown as a duration.
func (m MatchingConfig) Cooldown() time.Duration {
	return time.Duration(m.CooldownMinutes) * time.Minute
}

// WaitTimeout returns the pool timeout as a duration.
func (m MatchingConfig) WaitTimeout() time.Duration {
	return time.Duration(m.WaitTimeoutMinutes) * time.Minute
}

// ChatDuration returns the conversation lifetime as a duration.
func (m MatchingConfig) ChatDuration() time.Duration {
	return time.Duration(m.ChatDurationMinutes) * time.Minute
}

// RateLimitConfig configures per-user command rate limiting.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxRequests   int  `yaml:"max_requests"`
	WindowSeconds int  `yaml:"window_seconds"`
}

// Window returns the rate limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// DailyConfig schedules the daily conversation-starter question.
type DailyConfig struct {
	Enabled bool `yaml:"enabled"`
	Hour    int  `yaml:"hour"`
	Minute  int  `yaml:"minute"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Load reads a YAML config file, expands $VAR references from the
// environment, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/barista.db"
	}
	if c.Knowledge.Dir == "" {
		c.Knowledge.Dir = "knowledge"
	}
	if c.Matching.CooldownMinutes <= 0 {
		c.Matching.CooldownMinutes = 5
	}
	if c.Matching.WaitTimeoutMinutes <= 0 {
		c.Matching.WaitTimeoutMinutes = 5
	}
	if c.Matching.ChatDurationMinutes <= 0 {
		c.Matching.ChatDurationMinutes = 5
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 10
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Daily.Hour == 0 && c.Daily.Minute == 0 {
		c.Daily.Hour = 10
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required")
	}
	if c.Slack.AppToken == "" {
		return fmt.Errorf("slack.app_token is required")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", "openai", "anthropic", c.LLM.Provider)
	}
	if c.Daily.Hour < 0 || c.Daily.Hour > 23 {
		return fmt.Errorf("daily_question.hour must be in [0,23], got %d", c.Daily.Hour)
	}
	if c.Daily.Minute < 0 || c.Daily.Minute > 59 {
		return fmt.Errorf("daily_question.minute must be in [0,59], got %d", c.Daily.Minute)
	}
	return nil
}
