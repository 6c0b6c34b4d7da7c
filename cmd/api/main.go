package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/knakagawa/parody-engine/internal/config"
	"github.com/knakagawa/parody-engine/internal/generator"
	"github.com/knakagawa/parody-engine/internal/handlers"
	"github.com/knakagawa/parody-engine/internal/logger"
	"github.com/knakagawa/parody-engine/internal/middleware"
	"github.com/knakagawa/parody-engine/internal/services"
	"github.com/knakagawa/parody-engine/internal/storage"
	"github.com/knakagawa/parody-engine/pkg/patterns"
	"github.com/knakagawa/parody-engine/pkg/script"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Parody Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var llmService services.LLMService
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic LLM provider")
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			log.Error("DeepSeek API key is required when using deepseek provider")
			os.Exit(1)
		}
		llmService = services.NewDeepSeekService(cfg.DeepSeekAPIKey, cfg.ModelName)
		log.Info("Using DeepSeek LLM provider")
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Error("Gemini API key is required when using gemini provider")
			os.Exit(1)
		}
		geminiCtx, geminiCancel := context.WithTimeout(context.Background(), 30*time.Second)
		llmService, err = services.NewGeminiService(geminiCtx, cfg.GeminiAPIKey, cfg.ModelName)
		geminiCancel()
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		log.Info("Using Gemini LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"anthropic", "deepseek", "gemini"})
		os.Exit(1)
	}

	patternsPath := filepath.Join(cfg.DataDir, cfg.PatternsFile)
	store, err := patterns.Load(patternsPath)
	if err != nil {
		log.Error("Failed to load pattern store", "path", patternsPath, "error", err)
		os.Exit(1)
	}
	log.Info("Pattern store loaded", "path", patternsPath, "characters", len(store.Characters()))

	scriptPaths, err := filepath.Glob(filepath.Join(cfg.ScriptsDir, "*.txt"))
	if err != nil {
		log.Error("Failed to list script files", "dir", cfg.ScriptsDir, "error", err)
		os.Exit(1)
	}
	library, err := script.LoadLibrary(scriptPaths...)
	if err != nil {
		log.Error("Failed to load script library", "error", err)
		os.Exit(1)
	}
	log.Info("Script library loaded", "files", len(scriptPaths), "lines", library.Len())

	sessionStore := storage.NewRedisStore(cfg.RedisURL, log)
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storeCancel()

	if err := sessionStore.Ping(storeCtx); err != nil {
		log.Error("Failed to connect to session store", "error", err)
		os.Exit(1)
	}
	log.Info("Session store connection established")

	cache := services.NewRedisService(cfg.RedisURL, log)

	archive, err := storage.NewSQLiteArchive(cfg.ArchivePath, log)
	if err != nil {
		log.Error("Failed to open scene archive", "path", cfg.ArchivePath, "error", err)
		os.Exit(1)
	}
	log.Info("Scene archive opened", "path", cfg.ArchivePath)

	engine := generator.New(store, library, llmService, cache, archive, log, cfg.ContextWindow)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(sessionStore, log)
	mux.Handle("/health", healthHandler)

	scenarioHandler := handlers.NewScenarioHandler(engine, sessionStore, log)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	charactersHandler := handlers.NewCharactersHandler(store, log)
	mux.Handle("/v1/characters", charactersHandler)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := middleware.Logger(limiter.Middleware(mux))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Scene generation can take a while; write timeout is generous.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := sessionStore.Close(); err != nil {
		log.Error("Error closing session store", "error", err)
	}
	if err := cache.Close(); err != nil {
		log.Error("Error closing cache connection", "error", err)
	}
	if err := archive.Close(); err != nil {
		log.Error("Error closing scene archive", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
