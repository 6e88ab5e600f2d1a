package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/common/logger"
	"storysmith.app/refinery/common/otel"
	"storysmith.app/refinery/core/config"
	"storysmith.app/refinery/core/db"
	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/http/middleware"
	httprouter "storysmith.app/refinery/internal/http/router"
	"storysmith.app/refinery/internal/pipeline"
	"storysmith.app/refinery/internal/queue"
	"storysmith.app/refinery/internal/retriever"
	"storysmith.app/refinery/internal/service"
	"storysmith.app/refinery/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet, OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "refinery starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var sessionStore store.SessionStore
	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		sessionStore = store.NewPostgresSessionStore(database)
		slog.InfoContext(ctx, "database connected")
	} else {
		sessionStore = store.NewMemorySessionStore()
		slog.WarnContext(ctx, "no DATABASE_URL configured, sessions are held in memory")
	}

	var producer queue.Producer
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.IntakeStream)

		producer = queue.NewRedisProducer(redisClient, cfg.Redis.IntakeStream)
		defer producer.Close()
	} else {
		slog.InfoContext(ctx, "no REDIS_URL configured, document intake disabled")
	}

	var search retriever.Retriever
	if cfg.Typesense.Enabled() {
		search, err = retriever.NewTypesense(retriever.TypesenseConfig{
			URL:        cfg.Typesense.URL,
			APIKey:     cfg.Typesense.APIKey,
			Collection: cfg.Typesense.Collection,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize typesense retriever", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "typesense retriever initialized", "collection", cfg.Typesense.Collection)
	} else {
		slog.InfoContext(ctx, "no typesense configured, runs proceed without reference documents")
	}

	llmClient, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize llm client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm client initialized", "provider", cfg.LLM.Provider, "model", llmClient.Model())

	eng := engine.New(llmClient, engine.Config{
		StageTimeout: time.Duration(cfg.Pipeline.StageTimeoutSeconds) * time.Second,
		Temperature:  cfg.Pipeline.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Language:     cfg.Pipeline.Language,
	})

	services := service.NewServices(service.ServicesConfig{
		Stores:       store.NewStores(sessionStore),
		Runner:       pipeline.NewRunner(eng),
		Invoker:      eng,
		Retriever:    search,
		Producer:     producer,
		SnippetLimit: cfg.Typesense.SnippetLimit,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services)

	return router
}

const banner = `
██████╗ ███████╗███████╗██╗███╗   ██╗███████╗██████╗ ██╗   ██╗
██╔══██╗██╔════╝██╔════╝██║████╗  ██║██╔════╝██╔══██╗╚██╗ ██╔╝
██████╔╝█████╗  █████╗  ██║██╔██╗ ██║█████╗  ██████╔╝ ╚████╔╝
██╔══██╗██╔══╝  ██╔══╝  ██║██║╚██╗██║██╔══╝  ██╔══██╗  ╚██╔╝
██║  ██║███████╗██║     ██║██║ ╚████║███████╗██║  ██║   ██║
╚═╝  ╚═╝╚══════╝╚═╝     ╚═╝╚═╝  ╚═══╝╚══════╝╚═╝  ╚═╝   ╚═╝
`
