package config

import (
	"fmt"
	"strings"
)

// Config is the runtime configuration for the service. It is assembled from
// defaults, an optional YAML file and environment variable overrides, in that
// order.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Notion    NotionConfig    `yaml:"notion"`
	AI        AIConfig        `yaml:"ai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	BasePath       string   `yaml:"base_path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SecurityConfig struct {
	// Debug gates the model-selection and debug-menu affordances and switches
	// logging to text/debug output.
	Debug   bool   `yaml:"debug_mode"`
	LogFile string `yaml:"log_file"`
	// PrefsPath is where the durable preference store lives.
	PrefsPath string `yaml:"prefs_path"`
}

type NotionConfig struct {
	APIKey           string `yaml:"api_key"`
	RootPageID       string `yaml:"root_page_id"`
	ConfigDatabaseID string `yaml:"config_database_id"`
	Version          string `yaml:"version"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	MaxRetries       int    `yaml:"max_retries"`
}

type AIConfig struct {
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	DefaultTextModel       string `yaml:"default_text_model"`
	DefaultMultimodalModel string `yaml:"default_multimodal_model"`
	DefaultSystemPrompt    string `yaml:"default_system_prompt"`

	TimeoutSec int `yaml:"timeout_sec"`
	MaxRetries int `yaml:"max_retries"`
}

type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	GlobalPerHour int  `yaml:"global_per_hour"`
	PerIPRPS      int  `yaml:"per_ip_rps"`
	PerIPBurst    int  `yaml:"per_ip_burst"`
}

// Defaults returns a Config populated with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8085",
			AllowedOrigins: []string{"*"},
		},
		Security: SecurityConfig{
			PrefsPath: "prefs.json",
		},
		Notion: NotionConfig{
			Version:    "2022-06-28",
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		AI: AIConfig{
			DefaultTextModel:       "gemini/gemini-2.0-flash-exp",
			DefaultMultimodalModel: "gemini/gemini-2.0-flash-exp",
			TimeoutSec:             30,
			MaxRetries:             1,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			GlobalPerHour: 1000,
			PerIPRPS:      10,
			PerIPBurst:    20,
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Notion.TimeoutSec <= 0 {
		return fmt.Errorf("notion.timeout_sec must be positive")
	}
	if c.Notion.MaxRetries < 1 {
		return fmt.Errorf("notion.max_retries must be at least 1")
	}
	if c.AI.TimeoutSec <= 0 {
		return fmt.Errorf("ai.timeout_sec must be positive")
	}
	return nil
}

// HasProvider reports whether credentials for the given provider key are
// configured. Keys follow the model registry convention ("gemini", "openai",
// "anthropic").
func (c *Config) HasProvider(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "gemini", "google":
		return c.AI.GeminiAPIKey != ""
	case "openai":
		return c.AI.OpenAIAPIKey != ""
	case "anthropic":
		return c.AI.AnthropicAPIKey != ""
	default:
		return false
	}
}

// CORSRestricted reports whether the allowed origin list is anything narrower
// than the wildcard.
func (c *Config) CORSRestricted() bool {
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" {
			return false
		}
	}
	return len(c.Server.AllowedOrigins) > 0
}
