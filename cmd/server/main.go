package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memoai-go/internal/ai"
	"memoai-go/internal/config"
	"memoai-go/internal/debug"
	"memoai-go/internal/llm"
	"memoai-go/internal/logging"
	"memoai-go/internal/middleware"
	"memoai-go/internal/models"
	"memoai-go/internal/notion"
	"memoai-go/internal/prefs"
	srv "memoai-go/internal/server"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debugFlag := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg := config.Load(*configPath)
	if *debugFlag {
		cfg.Security.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	broadcaster := logging.NewBroadcaster()
	defer broadcaster.Stop()
	log.AddHook(logging.NewHook(broadcaster))

	log.Infof("Starting Memo AI (config: %s)", *configPath)

	if cfg.Notion.APIKey == "" {
		log.Warn("Notion API key is not configured; save and lookup features will be unavailable")
	}
	if !cfg.HasProvider("gemini") && !cfg.HasProvider("openai") && !cfg.HasProvider("anthropic") {
		log.Warn("No AI provider credentials configured; analysis features will be unavailable")
	}

	store, err := prefs.Open(cfg.Security.PrefsPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open preference store")
	}

	state := debug.NewState()
	registry := models.NewRegistry(cfg)
	selector := models.NewSelector(registry, cfg.AI.DefaultTextModel, cfg.AI.DefaultMultimodalModel)
	llmClient := llm.NewClient(cfg.AI, registry, llm.WithRecorder(state))
	analyzer := ai.NewAnalyzer(llmClient, selector)
	prompts := ai.NewPromptStore(cfg.AI.DefaultSystemPrompt)
	notionClient := notion.NewClient(cfg.Notion, notion.WithRecorder(state))

	// The menu affordances start hidden and only show when debug mode is on.
	// A debug-off evaluation also drops any persisted model selection.
	ui := debug.UIState{ModelMenu: &debug.Element{}, DebugMenu: &debug.Element{}}
	debug.ApplyDebugGate(state, ui, store, cfg.Security.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config.Watch(ctx, *configPath, func(fresh *config.Config) {
		if *debugFlag {
			fresh.Security.Debug = true
		}
		if err := logging.Setup(fresh); err != nil {
			log.WithError(err).Warn("failed to reconfigure logging after reload")
		}
		prompts.SetDefault(fresh.AI.DefaultSystemPrompt)
		debug.ApplyDebugGate(state, ui, store, fresh.Security.Debug)
	})

	engine := srv.BuildEngine(cfg, srv.Dependencies{
		State:       state,
		Prefs:       store,
		Registry:    registry,
		Selector:    selector,
		Analyzer:    analyzer,
		Notion:      notionClient,
		Prompts:     prompts,
		Broadcaster: broadcaster,
		Metrics:     middleware.NewMetrics(),
	})

	httpSrv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: engine}

	go func() {
		log.Infof("Memo AI listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	log.Info("Server stopped")
}
