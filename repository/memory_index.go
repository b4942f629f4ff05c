package repository

import (
	"context"
	"fmt"
	"math"
	"sort"

	"faqbot-backend/models"
)

// MemoryIndex is an exhaustive in-memory index scoring every stored vector
// against the query by cosine similarity.
type MemoryIndex struct {
	vectors [][]float64
	dims    int
}

// NewMemoryIndex builds an index over the given vectors. Vector i must be
// the embedding of knowledge unit i; all vectors must share one dimension.
func NewMemoryIndex(vectors [][]float64) (*MemoryIndex, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return &MemoryIndex{vectors: vectors, dims: dims}, nil
}

// Search returns the top-k vectors by descending cosine similarity. Ties keep
// original vector order.
func (idx *MemoryIndex) Search(ctx context.Context, query []float64, k int) ([]models.IndexMatch, error) {
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dims)
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	matches := make([]models.IndexMatch, len(idx.vectors))
	for i, v := range idx.vectors {
		matches[i] = models.IndexMatch{UnitID: i, Score: cosineSimilarity(query, v)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Metric returns cosine similarity
func (idx *MemoryIndex) Metric() models.Metric {
	return models.MetricCosine
}

// Len returns the number of stored vectors
func (idx *MemoryIndex) Len() int {
	return len(idx.vectors)
}

// cosineSimilarity computes the cosine of the angle between two equal-length
// vectors. A zero vector yields 0.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
