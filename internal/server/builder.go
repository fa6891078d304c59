package server

import (
	"memoai-go/internal/ai"
	"memoai-go/internal/config"
	"memoai-go/internal/debug"
	"memoai-go/internal/logging"
	"memoai-go/internal/middleware"
	"memoai-go/internal/models"
	"memoai-go/internal/notion"

	"github.com/gin-gonic/gin"
)

// Dependencies encapsulates the runtime services the HTTP layer needs.
type Dependencies struct {
	State       *debug.State
	Prefs       debug.PreferenceStore
	Registry    *models.Registry
	Selector    *models.Selector
	Analyzer    *ai.Analyzer
	Notion      *notion.Client
	Prompts     *ai.PromptStore
	Broadcaster *logging.Broadcaster
	Metrics     *middleware.Metrics
}

// BuildEngine constructs the gin engine with the full middleware chain and
// all routes mounted under the configured base path.
func BuildEngine(cfg *config.Config, deps Dependencies) *gin.Engine {
	if !cfg.Security.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Metrics == nil {
		deps.Metrics = middleware.NewMetrics()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.CORS(cfg.Server.AllowedOrigins),
		deps.Metrics.Middleware(),
		middleware.RateLimiter(cfg.RateLimit),
	)

	root := engine.Group(cfg.Server.BasePath)
	h := &handler{cfg: cfg, deps: deps}
	h.register(root)
	return engine
}
