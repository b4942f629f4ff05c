package main

import (
	"context"
	"log"

	"faqbot-backend/config"
	"faqbot-backend/handlers"
	"faqbot-backend/knowledge"
	"faqbot-backend/models"
	"faqbot-backend/repository"
	"faqbot-backend/service"
	"faqbot-backend/storage"
	"faqbot-backend/telegram"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Load the knowledge base. An unusable source must prevent the pipeline
	// from serving traffic, not degrade into empty answers.
	units, err := loadKnowledge(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load knowledge source: %v", err)
	}
	log.Printf("Loaded %d knowledge units from %s", len(units), cfg.KnowledgeSource)

	embedder := service.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)

	index, err := buildIndex(ctx, cfg, units, embedder)
	if err != nil {
		log.Fatalf("Failed to initialize vector index: %v", err)
	}
	log.Printf("Vector index ready (%s, %d vectors, metric %s)", cfg.IndexBackend, index.Len(), index.Metric())

	// Initialize Gemini client
	geminiClient, err := initGemini(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal("Failed to initialize Gemini:", err)
	}

	qaService := service.NewQAService(
		service.WithKnowledgeUnits(units),
		service.WithVectorIndex(index),
		service.WithEmbedder(embedder),
		service.WithLLM(service.NewGeminiLLM(geminiClient, cfg.GeminiModel)),
		service.WithFallbackPolicy(cfg.FallbackPolicy),
		service.WithRewriter(cfg.EnableRewriter),
	)

	chatHandler := handlers.NewChatHandler(qaService, cfg.ConfidenceThreshold, cfg.TopK)

	// Setup Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"units":  len(units),
		})
	})

	r.GET("/api/chat", chatHandler.Chat)

	// The Telegram webhook is only mounted when a bot token is configured
	if cfg.TelegramToken != "" {
		bot := telegram.NewClient(cfg.TelegramToken)
		telegramHandler := handlers.NewTelegramHandler(qaService, bot, cfg.Metric(), cfg.ConfidenceThreshold, cfg.TopK)
		r.POST("/webhook", telegramHandler.Webhook)
		log.Println("Telegram webhook enabled")
	} else {
		log.Println("TELEGRAM_TOKEN not set, webhook disabled")
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func loadKnowledge(ctx context.Context, cfg *config.Config) ([]models.KnowledgeUnit, error) {
	source, err := storage.NewSourceFromEnv()
	if err != nil {
		return nil, err
	}

	reader, err := source.Fetch(ctx, cfg.KnowledgeSource)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if cfg.KnowledgeFormat == config.FormatFAQ {
		return knowledge.LoadFAQ(reader)
	}
	return knowledge.LoadDocument(reader)
}

func buildIndex(
	ctx context.Context,
	cfg *config.Config,
	units []models.KnowledgeUnit,
	embedder service.Embedder,
) (repository.VectorIndex, error) {
	switch cfg.IndexBackend {
	case config.IndexPostgres:
		db, err := initPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		chunkRepo := repository.NewChunkRepository(db, cfg.EmbeddingDimensions)
		return repository.NewPGIndex(ctx, chunkRepo, cfg.KnowledgeSource)

	default:
		// Exhaustive in-memory search over title embeddings
		titles := make([]string, len(units))
		for i, unit := range units {
			titles[i] = unit.Title
		}
		vectors, err := embedder.EmbedBatch(ctx, titles, service.TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		return repository.NewMemoryIndex(vectors)
	}
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	log.Println("Postgres connection established")
	return pool, nil
}

func initGemini(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Println("Gemini client initialized")
	return client, nil
}
