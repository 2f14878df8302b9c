package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-resolver/internal/api"
	"recipe-resolver/internal/api/handlers/health"
	"recipe-resolver/internal/api/handlers/recipe"
	"recipe-resolver/internal/api/middleware"
	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/core/provider"
	"recipe-resolver/internal/core/resolution"
	"recipe-resolver/internal/core/store"
	"recipe-resolver/internal/infrastructure/config"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("configuration loaded",
		zap.String("env", cfg.App.Env),
		zap.String("openrouter_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("store_path", cfg.Store.Path),
		zap.String("session_backend", cfg.Session.Backend),
	)

	ctx := context.Background()

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		common.LogFatal("failed to open recipe store", zap.Error(err))
	}
	defer st.Close()

	var sessions resolution.SessionStore
	if cfg.Session.Backend == "redis" {
		sessions, err = resolution.NewRedisSessionStore(cfg.Session.RedisAddr, cfg.Session.TTL)
		if err != nil {
			common.LogFatal("failed to connect session store", zap.Error(err))
		}
	} else {
		sessions = resolution.NewMemorySessionStore(cfg.Session.TTL)
	}

	llm := provider.NewOpenRouterClient(cfg)

	var embedder resolution.Embedder
	if cfg.Embedding.Enabled && cfg.Embedding.APIKey != "" {
		client, err := provider.NewEmbeddingClient(ctx, cfg)
		if err != nil {
			common.LogWarn("embedding disabled, semantic cache tier unavailable", zap.Error(err))
		} else {
			embedder = client
		}
	}

	var searchClient resolution.SearchClient
	if cfg.Search.Enabled && cfg.Search.APIKey != "" {
		searchClient = provider.NewTavilyClient(cfg)
	}

	validator := ingredient.NewValidator(cfg.Pantry.Defaults)

	cache, err := resolution.NewCacheResolver(st, embedder, cfg.Store.HotCacheSize, cfg.Store.SimilarityCutoff)
	if err != nil {
		common.LogFatal("failed to create cache resolver", zap.Error(err))
	}

	orchestrator := resolution.NewOrchestrator(resolution.Deps{
		Validator:     validator,
		Cache:         cache,
		Search:        resolution.NewWebSearchAdapter(searchClient, llm, cfg.Pantry.Defaults),
		Generator:     resolution.NewGenerator(llm, cfg.Pantry.Defaults, 0.7),
		Gate:          resolution.NewReviewGate(llm, validator),
		Sessions:      sessions,
		Events:        st,
		MaxIterations: cfg.Resolution.MaxIterations,
		MaxExtras:     cfg.Resolution.MaxExtras,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	router := api.NewRouter(cfg, api.Deps{
		Recipe:  recipe.NewHandler(orchestrator, st, cache, embedder, validator),
		Health:  health.NewHandler(st, cfg.App.Version),
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("forced shutdown", zap.Error(err))
	}
	common.LogInfo("Server exited")
}
