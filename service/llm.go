package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"faqbot-backend/models"

	"github.com/google/generative-ai-go/genai"
)

// LLM produces a text completion from a role-tagged prompt. Calls are
// blocking network operations bounded by a timeout; a timeout is an ordinary
// call failure.
type LLM interface {
	Generate(ctx context.Context, messages []models.Message, temperature float32, maxTokens int32) (string, error)
}

var ErrGenerationFailed = errors.New("failed to generate content")

const llmCallTimeout = 60 * time.Second

// GeminiLLM generates text via the Gemini API.
type GeminiLLM struct {
	client *genai.Client
	model  string
}

// NewGeminiLLM wraps an initialized Gemini client for the given model.
func NewGeminiLLM(client *genai.Client, model string) *GeminiLLM {
	return &GeminiLLM{client: client, model: model}
}

// Generate flattens the messages into a single plain-text prompt and calls
// the Gemini generation API with the given sampling settings.
func (g *GeminiLLM) Generate(
	ctx context.Context,
	messages []models.Message,
	temperature float32,
	maxTokens int32,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxTokens)

	prompt := models.FlattenMessages(messages)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: API returned no candidates", ErrGenerationFailed)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", fmt.Errorf("%w: API returned empty content", ErrGenerationFailed)
	}

	return result, nil
}
