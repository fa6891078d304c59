package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, "8085", cfg.Server.Port)
	assert.False(t, cfg.Security.Debug)
	assert.Equal(t, "2022-06-28", cfg.Notion.Version)
	assert.Equal(t, "gemini/gemini-2.0-flash-exp", cfg.AI.DefaultTextModel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: "9090"
security:
  debug_mode: true
ai:
  default_system_prompt: "file prompt"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("NOTION_API_KEY", "secret_test")
	t.Setenv("DEFAULT_SYSTEM_PROMPT", "env prompt")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load(path)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Security.Debug)
	assert.Equal(t, "secret_test", cfg.Notion.APIKey)
	// env wins over file
	assert.Equal(t, "env prompt", cfg.AI.DefaultSystemPrompt)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestHasProvider(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.HasProvider("gemini"))
	cfg.AI.GeminiAPIKey = "g"
	assert.True(t, cfg.HasProvider("gemini"))
	assert.True(t, cfg.HasProvider("google"))
	assert.False(t, cfg.HasProvider("openai"))
	assert.False(t, cfg.HasProvider("unknown"))
}

func TestCORSRestricted(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.CORSRestricted())
	cfg.Server.AllowedOrigins = []string{"https://memo.example.com"}
	assert.True(t, cfg.CORSRestricted())
}

func TestValidate_Errors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = " "
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Notion.MaxRetries = 0
	assert.Error(t, cfg.Validate())
}
