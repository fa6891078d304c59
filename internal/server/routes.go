package server

import (
	"io/fs"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"memoai-go/internal/config"
	"memoai-go/internal/debug"

	"memoai-go/web"

	"github.com/gin-gonic/gin"
)

// DebugEndpointPath is deliberately non-guessable; the panel is not linked
// anywhere in the UI when debug mode is off.
const DebugEndpointPath = "/api/debug5075378"

type handler struct {
	cfg  *config.Config
	deps Dependencies
}

func (h *handler) register(root *gin.RouterGroup) {
	root.GET("/api/config", h.getConfig)
	root.GET(DebugEndpointPath, h.getDebugSnapshot)
	root.GET("/api/models", h.getModels)
	root.POST("/api/models/select", h.selectModel)
	root.POST("/api/process", h.processText)
	root.POST("/api/chat", h.chat)
	root.POST("/api/save", h.save)
	root.GET("/api/notion/configs", h.notionConfigs)
	root.GET("/api/logs/stream", h.streamLogs)
	root.GET("/health", h.health)
	root.GET("/metrics", h.deps.Metrics.Handler())
	h.registerStatic(root)
}

func (h *handler) registerStatic(root *gin.RouterGroup) {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return
	}
	root.GET("/", func(c *gin.Context) {
		c.FileFromFS("index.html", http.FS(sub))
	})
	root.StaticFS("/static", http.FS(sub))
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getConfig is the client-facing configuration resource: the debug flag and
// the default system prompt, nothing sensitive.
func (h *handler) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, debug.AppConfig{
		DebugMode:           h.cfg.Security.Debug,
		DefaultSystemPrompt: h.deps.Prompts.Default(),
	})
}

func (h *handler) getDebugSnapshot(c *gin.Context) {
	snap := gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cors": gin.H{
			"allowed_origins":   h.cfg.Server.AllowedOrigins,
			"is_restricted":     h.cfg.CORSRestricted(),
			"detected_platform": detectPlatform(),
		},
		"environment": gin.H{
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			"debug_mode": strconv.FormatBool(h.cfg.Security.Debug),
		},
	}

	if last := h.deps.State.LastCall(); last != nil {
		snap["last_call"] = last
	}

	// Masked env vars only when debug mode is on.
	if h.cfg.Security.Debug {
		snap["env_vars"] = maskedEnvVars(
			"NOTION_API_KEY", "NOTION_ROOT_PAGE_ID", "NOTION_CONFIG_DATABASE_ID",
			"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		)
	}

	available := h.deps.Registry.Available()
	if len(available) > 0 {
		recommended := 0
		for _, m := range available {
			if m.Recommended {
				recommended++
			}
		}
		snap["models"] = gin.H{
			"total_count":       len(available),
			"recommended_count": recommended,
			"raw_list":          available,
		}
	}
	c.JSON(http.StatusOK, snap)
}

// maskedEnvVars reports whether each variable is set, with only a length
// hint. Unset variables map to null.
func maskedEnvVars(names ...string) map[string]*string {
	out := make(map[string]*string, len(names))
	for _, name := range names {
		val, ok := os.LookupEnv(name)
		if !ok || val == "" {
			out[name] = nil
			continue
		}
		masked := "set (" + strconv.Itoa(len(val)) + " chars)"
		out[name] = &masked
	}
	return out
}

// detectPlatform sniffs the hosting platform from well-known env vars.
func detectPlatform() string {
	switch {
	case os.Getenv("VERCEL") != "":
		return "vercel"
	case os.Getenv("RAILWAY_ENVIRONMENT") != "":
		return "railway"
	case os.Getenv("FLY_APP_NAME") != "":
		return "fly"
	case os.Getenv("RENDER") != "":
		return "render"
	case os.Getenv("K_SERVICE") != "":
		return "cloud_run"
	default:
		return ""
	}
}
