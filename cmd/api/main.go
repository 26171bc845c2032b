package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/api/handlers"
	"github.com/mindspace/backend/internal/cache/redis"
	"github.com/mindspace/backend/internal/chat"
	"github.com/mindspace/backend/internal/ingestion"
	"github.com/mindspace/backend/internal/llm"
	"github.com/mindspace/backend/internal/metrics"
	"github.com/mindspace/backend/internal/middleware/ratelimit"
	"github.com/mindspace/backend/internal/middleware/security"
	"github.com/mindspace/backend/internal/middleware/validation"
	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/internal/retrieval"
	"github.com/mindspace/backend/internal/storage/sqlite"
	"github.com/mindspace/backend/internal/vector/milvus"
	"github.com/mindspace/backend/pkg/config"
	appLogger "github.com/mindspace/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting MindSpace API server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	if err := milvusClient.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure passage collection", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The pipeline works without a cache; start degraded rather
			// than refuse to serve.
			appLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	primary := llm.NewOpenAICompatible(llm.OpenAIConfig{
		Name:           cfg.LLM.Primary.Name,
		BaseURL:        cfg.LLM.Primary.BaseURL,
		APIKey:         cfg.LLM.Primary.APIKey,
		Model:          cfg.LLM.Primary.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Primary.Temperature,
		MaxTokens:      cfg.LLM.Primary.MaxTokens,
	})

	secondary, err := llm.NewGemini(context.Background(), llm.GeminiConfig{
		APIKey:      cfg.LLM.Secondary.APIKey,
		Model:       cfg.LLM.Secondary.Model,
		Temperature: cfg.LLM.Secondary.Temperature,
		MaxTokens:   cfg.LLM.Secondary.MaxTokens,
	})
	if err != nil {
		appLogger.Fatal("Failed to create secondary provider", zap.Error(err))
	}

	orchestrator := llm.NewOrchestrator(primary, secondary, llm.OrchestratorConfig{
		PrimaryTimeout:   time.Duration(cfg.LLM.Primary.TimeoutSec) * time.Second,
		SecondaryTimeout: time.Duration(cfg.LLM.Secondary.TimeoutSec) * time.Second,
	})

	var embedder retrieval.Embedder = primary
	if cacheClient != nil {
		embedder = retrieval.NewCachedEmbedder(primary, cacheClient, redis.EmbeddingTTL)
	}

	retriever := retrieval.NewRetriever(embedder, milvusClient, cfg.Retrieval.TopK)
	assembler := prompt.NewAssembler(cfg.Retrieval.HistoryWindow)

	var responseCache chat.ResponseCache
	if cacheClient != nil {
		responseCache = cacheClient
	}
	engine := chat.NewEngine(retriever, assembler, orchestrator, sqliteClient, responseCache, cfg.Retrieval.HistoryWindow)

	processor := ingestion.NewProcessor(sqliteClient, milvusClient, primary, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

	if cfg.Documents.Dir != "" {
		if _, err := os.Stat(cfg.Documents.Dir); err == nil {
			go func() {
				if _, err := processor.BuildIndex(context.Background(), cfg.Documents.Dir); err != nil {
					appLogger.Error("Startup index build failed", zap.Error(err))
				}
			}()
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.Get(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.Get()}))

	chatHandler := handlers.NewChatHandler(engine, sqliteClient)
	assessmentHandler := handlers.NewAssessmentHandler(sqliteClient)
	documentHandler := handlers.NewDocumentHandler(processor, cacheClient)
	wsHandler := handlers.NewWebSocketHandler(engine)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetChatHistory)

	api.Get("/assessments/:instrument/questions", assessmentHandler.GetQuestions)
	api.Post("/assessments", assessmentHandler.SubmitAssessment)

	api.Post("/documents", documentHandler.IngestDocument)
	api.Post("/documents/reindex", documentHandler.Reindex)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
