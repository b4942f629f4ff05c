package repository

import (
	"context"
	"fmt"

	"faqbot-backend/models"
)

// PGIndex exposes the persisted pgvector table as a VectorIndex. Rows are
// written offline by the index builder using the same embedding model and
// unit ordering the server loads at startup.
type PGIndex struct {
	repo           *ChunkRepository
	sourceDocument string
	size           int
}

// NewPGIndex validates that the persisted index exists for the source
// document and wraps it. An empty table is fatal at startup.
func NewPGIndex(ctx context.Context, repo *ChunkRepository, sourceDocument string) (*PGIndex, error) {
	count, err := repo.CountBySource(ctx, sourceDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to open persisted index: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no chunks stored for %s (run cmd/build-index)", ErrEmptyIndex, sourceDocument)
	}
	return &PGIndex{repo: repo, sourceDocument: sourceDocument, size: count}, nil
}

// Search returns the k nearest chunks by L2 distance, closest first.
func (idx *PGIndex) Search(ctx context.Context, query []float64, k int) ([]models.IndexMatch, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	return idx.repo.SearchNearest(ctx, query, idx.sourceDocument, k)
}

// Metric returns L2 distance
func (idx *PGIndex) Metric() models.Metric {
	return models.MetricL2
}

// Len returns the number of chunks counted at startup
func (idx *PGIndex) Len() int {
	return idx.size
}
