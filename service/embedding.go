package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Embedder converts text into fixed-dimension vectors. Query and document
// embeddings must come from the same provider and model or similarity scores
// are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float64, error)
}

// Embedding task types understood by the Gemini API.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

const (
	embeddingAPIFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:embedContent"
	batchAPIFormat     = "https://generativelanguage.googleapis.com/v1beta/models/%s:batchEmbedContents"
	maxRetries         = 3
	initialBackoff     = time.Second
)

var ErrEmbeddingFailed = errors.New("failed to generate embedding")

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// BatchEmbeddingItem is the structure returned by the batch API (no nested
// "embedding" key)
type BatchEmbeddingItem struct {
	Values []float64 `json:"values"`
}

type BatchEmbeddingRequest struct {
	Requests []EmbeddingRequest `json:"requests"`
}

type BatchEmbeddingResponse struct {
	Embeddings []BatchEmbeddingItem `json:"embeddings"`
}

// GeminiEmbedder calls the Gemini embedding API over HTTP.
type GeminiEmbedder struct {
	apiKey       string
	model        string
	dims         int
	client       *http.Client
	embeddingAPI string
	batchAPI     string
}

// NewGeminiEmbedder creates an embedder for the given model and output
// dimensionality.
func NewGeminiEmbedder(apiKey, model string, dims int) *GeminiEmbedder {
	return &GeminiEmbedder{
		apiKey:       apiKey,
		model:        model,
		dims:         dims,
		client:       &http.Client{Timeout: 30 * time.Second},
		embeddingAPI: fmt.Sprintf(embeddingAPIFormat, model),
		batchAPI:     fmt.Sprintf(batchAPIFormat, model),
	}
}

// Embed generates a single normalized embedding, retrying transient failures
// with exponential backoff. 400/401 responses are not retried.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float64, error) {
	reqBody := EmbeddingRequest{
		Model: "models/" + e.model,
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             taskType,
		OutputDimensionality: e.dims,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", e.embeddingAPI, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp EmbeddingResponse
			if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
				resp.Body.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to decode response: %w", err)
				}
				continue
			}
			resp.Body.Close()

			embedding := apiResp.Embedding.Values
			if len(embedding) == 0 {
				return nil, ErrEmbeddingFailed
			}
			normalizeEmbedding(embedding)
			return embedding, nil
		}

		resp.Body.Close()

		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("API error after %d attempts: %d", maxRetries, resp.StatusCode)
		}
	}

	return nil, ErrEmbeddingFailed
}

// EmbedBatch generates normalized embeddings for a slice of texts using the
// batch endpoint, respecting the API's per-request limit.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float64, error) {
	const batchSize = 100 // Google's API limit

	embeddings := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatchChunk(ctx, texts[i:end], taskType)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)

		// Brief sleep to avoid rate limits
		if end < len(texts) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	return embeddings, nil
}

func (e *GeminiEmbedder) embedBatchChunk(ctx context.Context, texts []string, taskType string) ([][]float64, error) {
	requests := make([]EmbeddingRequest, len(texts))
	for i, text := range texts {
		requests[i] = EmbeddingRequest{
			Model: "models/" + e.model,
			Content: ContentInput{
				Parts: []PartInput{{Text: text}},
			},
			TaskType:             taskType,
			OutputDimensionality: e.dims,
		}
	}

	jsonData, err := json.Marshal(BatchEmbeddingRequest{Requests: requests})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.batchAPI, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var apiResp BatchEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("mismatch: got %d embeddings for %d texts", len(apiResp.Embeddings), len(texts))
	}

	embeddings := make([][]float64, len(texts))
	for i, item := range apiResp.Embeddings {
		if len(item.Values) == 0 {
			return nil, fmt.Errorf("text %d has empty embedding", i)
		}
		normalizeEmbedding(item.Values)
		embeddings[i] = item.Values
	}

	return embeddings, nil
}

// normalizeEmbedding scales a vector to unit length in place. Required for
// output dimensionalities below the model's native size.
func normalizeEmbedding(embedding []float64) {
	var sumSq float64
	for _, v := range embedding {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}

	norm := math.Sqrt(sumSq)
	for i := range embedding {
		embedding[i] /= norm
	}
}
