package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"memoai-go/internal/ai"
	"memoai-go/internal/config"
	"memoai-go/internal/debug"
	"memoai-go/internal/llm"
	"memoai-go/internal/models"
	"memoai-go/internal/notion"
	"memoai-go/internal/prefs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubGen struct {
	content string
	err     error
	prompt  llm.Prompt
}

func (s *stubGen) Generate(ctx context.Context, modelID string, prompt llm.Prompt) (*llm.Result, error) {
	s.prompt = prompt
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Result{Content: s.content, Model: modelID, Usage: llm.Usage{TotalTokens: 10}}, nil
}

type testEnv struct {
	engine *gin.Engine
	cfg    *config.Config
	state  *debug.State
	prefs  *prefs.Store
	gen    *stubGen
}

func newTestEnv(t *testing.T, notionHandler http.Handler, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Defaults()
	cfg.Security.Debug = true
	cfg.RateLimit.Enabled = false
	cfg.AI.GeminiAPIKey = "test-key"
	cfg.Notion.APIKey = "secret"
	cfg.Notion.ConfigDatabaseID = "cfg-db"
	if mutate != nil {
		mutate(cfg)
	}

	state := debug.NewState()

	var notionClient *notion.Client
	if notionHandler != nil {
		srv := httptest.NewServer(notionHandler)
		t.Cleanup(srv.Close)
		notionClient = notion.NewClient(cfg.Notion, notion.WithBaseURL(srv.URL), notion.WithRecorder(state))
	} else {
		notionClient = notion.NewClient(cfg.Notion)
	}

	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)

	registry := models.NewRegistry(cfg)
	selector := models.NewSelector(registry, cfg.AI.DefaultTextModel, cfg.AI.DefaultMultimodalModel)
	gen := &stubGen{content: `{"message":"ok"}`}

	engine := BuildEngine(cfg, Dependencies{
		State:    state,
		Prefs:    store,
		Registry: registry,
		Selector: selector,
		Analyzer: ai.NewAnalyzer(gen, selector),
		Notion:   notionClient,
		Prompts:  ai.NewPromptStore(cfg.AI.DefaultSystemPrompt),
	})
	return &testEnv{engine: engine, cfg: cfg, state: state, prefs: store, gen: gen}
}

func get(env *testEnv, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	env.engine.ServeHTTP(w, req)
	return w
}

func postJSON(env *testEnv, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.engine.ServeHTTP(w, req)
	return w
}

func TestGetConfig(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) {
		c.Security.Debug = true
		c.AI.DefaultSystemPrompt = "organize my notes"
	})

	w := get(env, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "debug_mode").Bool())
	assert.Equal(t, "organize my notes", gjson.Get(w.Body.String(), "default_system_prompt").String())
}

func TestGetConfig_DebugOff(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Security.Debug = false })

	w := get(env, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "debug_mode").Bool())
}

func TestDebugSnapshot(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://a.example", "https://b.example"}
	})

	w := get(env, "/api/debug5075378")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.NotEmpty(t, gjson.Get(body, "timestamp").String())
	assert.True(t, gjson.Get(body, "cors.is_restricted").Bool())
	assert.Len(t, gjson.Get(body, "cors.allowed_origins").Array(), 2)
	assert.NotEmpty(t, gjson.Get(body, "environment.go_version").String())

	// debug mode on: masked env vars present
	assert.True(t, gjson.Get(body, "env_vars").Exists())

	// gemini credentials configured: catalog present with raw list
	assert.Greater(t, gjson.Get(body, "models.total_count").Int(), int64(0))
	assert.True(t, gjson.Get(body, "models.raw_list").IsArray())
}

func TestDebugSnapshot_EnvVarsHiddenWithoutDebug(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Security.Debug = false })

	w := get(env, "/api/debug5075378")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "env_vars").Exists())
}

func TestGetModels(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	require.NoError(t, env.prefs.Set(debug.SelectedModelKey, "gemini/gemini-1.5-pro"))

	w := get(env, "/api/models")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, gjson.Get(body, "models").IsArray())
	assert.Equal(t, "gemini/gemini-1.5-pro", gjson.Get(body, "selected_model").String())
	assert.Equal(t, env.cfg.AI.DefaultTextModel, gjson.Get(body, "default_text_model").String())
}

func TestSelectModel(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := postJSON(env, "/api/models/select", `{"model":"gemini/gemini-1.5-flash"}`)
	require.Equal(t, http.StatusOK, w.Code)
	v, ok := env.prefs.Get(debug.SelectedModelKey)
	require.True(t, ok)
	assert.Equal(t, "gemini/gemini-1.5-flash", v)
	assert.Equal(t, "gemini/gemini-1.5-flash", env.state.SelectedModel())

	w = postJSON(env, "/api/models/select", `{"model":"nope/unknown"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectModel_ForbiddenWithoutDebug(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Security.Debug = false })

	w := postJSON(env, "/api/models/select", `{"model":"gemini/gemini-1.5-flash"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := get(env, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
}

func TestNotionConfigs_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Notion.ConfigDatabaseID = "" })

	w := get(env, "/api/notion/configs")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcess_InvalidBody(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := postJSON(env, "/api/process", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, gjson.Get(w.Body.String(), "error.message").String())
}
