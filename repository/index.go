package repository

import (
	"context"
	"errors"

	"faqbot-backend/models"
)

var (
	ErrEmptyIndex        = errors.New("vector index holds no vectors")
	ErrDimensionMismatch = errors.New("query vector dimension does not match index")
)

// VectorIndex holds one vector per knowledge unit and answers nearest-neighbor
// queries against it. Implementations are immutable after construction; a
// reload swaps in a new instance rather than mutating in place.
type VectorIndex interface {
	// Search returns the k closest stored vectors under the index's metric,
	// best first. If k exceeds the number of stored vectors, all are returned.
	Search(ctx context.Context, query []float64, k int) ([]models.IndexMatch, error)
	// Metric reports how scores returned by Search are to be compared.
	Metric() models.Metric
	// Len returns the number of stored vectors.
	Len() int
}
