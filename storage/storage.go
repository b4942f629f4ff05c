package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source fetches knowledge-base artifacts (context documents, FAQ files) from
// a storage backend.
type Source interface {
	// Fetch retrieves an artifact by path or object key.
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// SourceType represents the storage backend type
type SourceType string

const (
	SourceTypeLocal SourceType = "local"
	SourceTypeS3    SourceType = "s3"
)

// SourceConfig holds configuration for a storage backend
type SourceConfig struct {
	Type         SourceType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// NewSource creates a storage backend based on configuration
func NewSource(cfg SourceConfig) (Source, error) {
	switch cfg.Type {
	case SourceTypeLocal:
		return NewLocalSource(cfg.LocalPath), nil
	case SourceTypeS3:
		return NewS3Source(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewSourceFromEnv creates a storage backend from environment variables
func NewSourceFromEnv() (Source, error) {
	sourceType := os.Getenv("STORAGE_TYPE")
	if sourceType == "" {
		sourceType = "local" // Default to local for development
	}

	cfg := SourceConfig{
		Type: SourceType(sourceType),
	}

	switch SourceType(sourceType) {
	case SourceTypeLocal:
		cfg.LocalPath = os.Getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "."
		}
		return NewLocalSource(cfg.LocalPath), nil

	case SourceTypeS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1" // Default region
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

		return NewS3Source(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", sourceType)
	}
}
