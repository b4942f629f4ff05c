package main

import (
	"context"
	"flag"
	"log"

	"faqbot-backend/config"
	"faqbot-backend/knowledge"
	"faqbot-backend/models"
	"faqbot-backend/repository"
	"faqbot-backend/service"
	"faqbot-backend/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Offline index builder: loads the knowledge source, embeds every unit title
// with the document task type, and persists the vectors into the pgvector
// table the server searches at query time. Must run with the same embedding
// model and dimensionality the server is configured with.
func main() {
	force := flag.Bool("force", false, "rebuild even if the source was already indexed")
	flag.Parse()

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

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	chunkRepo := repository.NewChunkRepository(pool, cfg.EmbeddingDimensions)
	if err := chunkRepo.CreateSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	// Check if already processed
	count, err := chunkRepo.CountBySource(ctx, cfg.KnowledgeSource)
	if err != nil {
		log.Fatalf("Failed to check existing chunks: %v", err)
	}
	if count > 0 {
		if !*force {
			log.Printf("Skipping %s (already processed: %d chunks). Use -force to rebuild.", cfg.KnowledgeSource, count)
			return
		}
		if err := chunkRepo.DeleteBySource(ctx, cfg.KnowledgeSource); err != nil {
			log.Fatalf("Failed to delete existing chunks: %v", err)
		}
		log.Printf("Deleted %d existing chunks for %s", count, cfg.KnowledgeSource)
	}

	units, err := loadKnowledge(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load knowledge source: %v", err)
	}
	log.Printf("Loaded %d knowledge units from %s", len(units), cfg.KnowledgeSource)

	log.Printf("Generating embeddings...")
	embedder := service.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	titles := make([]string, len(units))
	for i, unit := range units {
		titles[i] = unit.Title
	}
	vectors, err := embedder.EmbedBatch(ctx, titles, service.TaskRetrievalDocument)
	if err != nil {
		log.Fatalf("Failed to generate embeddings: %v", err)
	}

	chunks := make([]repository.KnowledgeChunk, len(units))
	for i, unit := range units {
		chunks[i] = repository.KnowledgeChunk{
			ID:             uuid.New(),
			ChunkIndex:     unit.ID,
			Title:          unit.Title,
			Body:           unit.Body,
			SourceDocument: cfg.KnowledgeSource,
			Embedding:      vectors[i],
		}
	}

	log.Printf("Storing chunks in database...")
	if err := chunkRepo.StoreChunks(ctx, chunks); err != nil {
		log.Fatalf("Failed to store chunks: %v", err)
	}

	log.Printf("Index built from %d chunks for %s", len(chunks), cfg.KnowledgeSource)
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
