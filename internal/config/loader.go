package config

import (
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then environment variable overrides. A missing file is not an
// error; a malformed one is logged and skipped.
func Load(path string) *Config {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.WithField("path", path).Debug("config file not found, using defaults")
		case err != nil:
			log.WithError(err).WithField("path", path).Warn("failed to read config file")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.WithError(err).WithField("path", path).Warn("failed to parse config file, ignoring it")
				cfg = Defaults()
			}
		}
	}

	cfg.mergeEnvVars()
	return cfg
}

func (c *Config) mergeEnvVars() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitAndTrim(v, ",")
	}

	setToggleFromEnv("DEBUG_MODE", func(b bool) { c.Security.Debug = b })
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Security.LogFile = v
	}
	if v := os.Getenv("PREFS_PATH"); v != "" {
		c.Security.PrefsPath = v
	}

	if v := os.Getenv("NOTION_API_KEY"); v != "" {
		c.Notion.APIKey = v
	}
	if v := os.Getenv("NOTION_ROOT_PAGE_ID"); v != "" {
		c.Notion.RootPageID = v
	}
	if v := os.Getenv("NOTION_CONFIG_DATABASE_ID"); v != "" {
		c.Notion.ConfigDatabaseID = v
	}
	setIntFromEnv("NOTION_TIMEOUT", func(n int) { c.Notion.TimeoutSec = n })
	setIntFromEnv("NOTION_MAX_RETRIES", func(n int) { c.Notion.MaxRetries = n })

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("DEFAULT_TEXT_MODEL"); v != "" {
		c.AI.DefaultTextModel = v
	}
	if v := os.Getenv("DEFAULT_MULTIMODAL_MODEL"); v != "" {
		c.AI.DefaultMultimodalModel = v
	}
	if v := os.Getenv("DEFAULT_SYSTEM_PROMPT"); v != "" {
		c.AI.DefaultSystemPrompt = v
	}
	setIntFromEnv("LLM_TIMEOUT", func(n int) { c.AI.TimeoutSec = n })
	setIntFromEnv("LLM_MAX_RETRIES", func(n int) { c.AI.MaxRetries = n })

	setToggleFromEnv("RATE_LIMIT_ENABLED", func(b bool) { c.RateLimit.Enabled = b })
	setIntFromEnv("RATE_LIMIT_GLOBAL_PER_HOUR", func(n int) { c.RateLimit.GlobalPerHour = n })
	setIntFromEnv("RATE_LIMIT_PER_IP_RPS", func(n int) { c.RateLimit.PerIPRPS = n })
	setIntFromEnv("RATE_LIMIT_PER_IP_BURST", func(n int) { c.RateLimit.PerIPBurst = n })
}
