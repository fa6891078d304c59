package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"memoai-go/internal/ai"
	"memoai-go/internal/config"
	"memoai-go/internal/debug"
	"memoai-go/internal/llm"
	"memoai-go/internal/models"
	"memoai-go/internal/notion"
	"memoai-go/internal/prefs"
	"memoai-go/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// taskSchemaJSON is the "properties" object of the fake target database.
const taskSchemaJSON = `{
	"Name": {"type": "title", "title": {}},
	"Memo": {"type": "rich_text", "rich_text": {}},
	"Tag": {"type": "select", "select": {"options": [{"name": "work"}, {"name": "life"}]}}
}`

// fakeNotion is an in-memory stand-in for the Notion REST API. It records
// page creations and block appends for assertions.
type fakeNotion struct {
	mu       sync.Mutex
	pages    []string // raw bodies of POST /pages
	appends  []string // raw bodies of PATCH /blocks/{id}/children
	pageSeq  int
	isPageID string // an ID treated as a plain page (400 on schema lookup)
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(path, "databases/"):
		f.mu.Lock()
		isPage := f.isPageID != "" && path == "databases/"+f.isPageID
		f.mu.Unlock()
		if isPage {
			http.Error(w, `{"object":"error","status":400,"code":"object_not_found"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, `{"properties":`+taskSchemaJSON+`}`)

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/query"):
		writeJSON(w, `{"results": [
			{"properties": {"Name": {"type":"title","title":[{"plain_text":"買い物"}]}, "Tag": {"type":"select","select":{"name":"life"}}}}
		]}`)

	case r.Method == http.MethodPost && path == "pages":
		body := readBody(r)
		f.mu.Lock()
		f.pages = append(f.pages, body)
		f.pageSeq++
		id := f.pageSeq
		f.mu.Unlock()
		writeJSON(w, `{"id":"page-`+strconv.Itoa(id)+`","url":"https://notion.so/page-`+strconv.Itoa(id)+`"}`)

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "blocks/"):
		f.mu.Lock()
		f.appends = append(f.appends, readBody(r))
		f.mu.Unlock()
		writeJSON(w, `{"results":[]}`)

	default:
		http.Error(w, `{"object":"error","status":404}`, http.StatusNotFound)
	}
}

func (f *fakeNotion) createdPages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pages...)
}

func (f *fakeNotion) appendedBlocks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.appends...)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func readBody(r *http.Request) string {
	raw, _ := io.ReadAll(r.Body)
	return string(raw)
}

// scriptedGen is a canned AI generator. It records the model and prompt of
// the last call.
type scriptedGen struct {
	mu      sync.Mutex
	content string
	err     error
	modelID string
	prompt  llm.Prompt
}

func (g *scriptedGen) Generate(ctx context.Context, modelID string, prompt llm.Prompt) (*llm.Result, error) {
	g.mu.Lock()
	g.modelID = modelID
	g.prompt = prompt
	content, err := g.content, g.err
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &llm.Result{
		Content: content,
		Model:   modelID,
		Usage:   llm.Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20},
		CostUSD: 0.0001,
	}, nil
}

func (g *scriptedGen) lastCall() (string, llm.Prompt) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modelID, g.prompt
}

// app is a fully wired service instance backed by the fake Notion API.
type app struct {
	engine *gin.Engine
	cfg    *config.Config
	state  *debug.State
	prefs  *prefs.Store
	notion *fakeNotion
	gen    *scriptedGen
}

func newApp(t *testing.T, mutate func(*config.Config)) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.Security.Debug = true
	cfg.RateLimit.Enabled = false
	cfg.AI.GeminiAPIKey = "test-gemini-key"
	cfg.Notion.APIKey = "test-notion-key"
	cfg.Notion.MaxRetries = 1
	if mutate != nil {
		mutate(cfg)
	}

	fake := &fakeNotion{}
	notionSrv := httptest.NewServer(fake)
	t.Cleanup(notionSrv.Close)

	state := debug.NewState()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)

	registry := models.NewRegistry(cfg)
	selector := models.NewSelector(registry, cfg.AI.DefaultTextModel, cfg.AI.DefaultMultimodalModel)
	gen := &scriptedGen{content: `{"message":"ok"}`}

	engine := server.BuildEngine(cfg, server.Dependencies{
		State:    state,
		Prefs:    store,
		Registry: registry,
		Selector: selector,
		Analyzer: ai.NewAnalyzer(gen, selector),
		Notion:   notion.NewClient(cfg.Notion, notion.WithBaseURL(notionSrv.URL), notion.WithRecorder(state)),
		Prompts:  ai.NewPromptStore(cfg.AI.DefaultSystemPrompt),
	})

	return &app{engine: engine, cfg: cfg, state: state, prefs: store, notion: fake, gen: gen}
}

func (a *app) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *app) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	a.engine.ServeHTTP(w, req)
	return w
}
