package repository

import (
	"context"
	"fmt"
	"strings"

	"faqbot-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository handles database operations for persisted knowledge chunks
// and their embeddings (pgvector).
type ChunkRepository struct {
	db   *pgxpool.Pool
	dims int
}

// NewChunkRepository creates a new chunk repository. dims is the embedding
// dimension the table was built with.
func NewChunkRepository(db *pgxpool.Pool, dims int) *ChunkRepository {
	return &ChunkRepository{db: db, dims: dims}
}

// KnowledgeChunk is one persisted row: a knowledge unit plus its embedding.
// ChunkIndex mirrors the unit's position in the knowledge source so search
// results can be joined back to the in-process store.
type KnowledgeChunk struct {
	ID             uuid.UUID
	ChunkIndex     int
	Title          string
	Body           string
	SourceDocument string
	Embedding      []float64
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// CreateSchema creates the pgvector extension and chunk table if missing.
func (r *ChunkRepository) CreateSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create pgvector extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id UUID PRIMARY KEY,
			chunk_index INT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			source_document TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			UNIQUE (source_document, chunk_index)
		)`, r.dims)
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create knowledge_chunks table: %w", err)
	}

	return nil
}

// CountBySource returns the number of chunks stored for a source document.
func (r *ChunkRepository) CountBySource(ctx context.Context, sourceDocument string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM knowledge_chunks WHERE source_document = $1",
		sourceDocument,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DeleteBySource removes all chunks for a source document.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, sourceDocument string) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM knowledge_chunks WHERE source_document = $1",
		sourceDocument,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// StoreChunks inserts chunks in a single transaction.
func (r *ChunkRepository) StoreChunks(ctx context.Context, chunks []KnowledgeChunk) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, chunk := range chunks {
		if len(chunk.Embedding) != r.dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, want %d",
				ErrDimensionMismatch, chunk.ChunkIndex, len(chunk.Embedding), r.dims)
		}

		query := `
		INSERT INTO knowledge_chunks (
			id, chunk_index, title, body, source_document, embedding
		) VALUES ($1, $2, $3, $4, $5, $6::vector)`

		_, err = tx.Exec(ctx, query,
			chunk.ID, chunk.ChunkIndex, chunk.Title, chunk.Body, chunk.SourceDocument,
			formatVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SearchNearest returns the k nearest chunks to the query embedding by L2
// distance, closest first.
func (r *ChunkRepository) SearchNearest(
	ctx context.Context,
	embedding []float64,
	sourceDocument string,
	k int,
) ([]models.IndexMatch, error) {
	if len(embedding) != r.dims {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, want %d",
			ErrDimensionMismatch, len(embedding), r.dims)
	}

	query := `
		SELECT
			chunk_index,
			embedding <-> $1::vector AS distance
		FROM knowledge_chunks
		WHERE source_document = $2
		ORDER BY
			embedding <-> $1::vector,
			chunk_index
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, formatVector(embedding), sourceDocument, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge chunks: %w", err)
	}
	defer rows.Close()

	var matches []models.IndexMatch
	for rows.Next() {
		var match models.IndexMatch
		if err := rows.Scan(&match.UnitID, &match.Score); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge chunks: %w", err)
	}

	return matches, nil
}
