package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"faqbot-backend/models"
	"faqbot-backend/repository"
)

// Fixed user-visible strings. Front ends match RefusalAnswer verbatim to
// decide reply-or-stay-silent, so it must never vary per call; any other
// answer paired with confidence 0.0 means synthesis itself failed.
const (
	RefusalAnswer = "I don't know based on the available context."
	ErrorAnswer   = "Sorry, there was an error answering your question. Please try again later."
)

const synthesisSystemInstruction = "You answer user questions using the provided context."

const finalPromptTemplate = "You are the PGDBA admissions FAQ assistant, made to help prospective students. " +
	"Try to use the provided context to answer as much as possible. You don't have to use all of it, just what seems relevant. " +
	"If the context does not contain the answer, respond exactly with: '" + RefusalAnswer + "'\n" +
	"USER QUESTION: %s\n\nCONTEXT:\n%s"

var (
	ErrKnowledgeNotSet = errors.New("knowledge units not set")
	ErrIndexNotSet     = errors.New("vector index not set")
	ErrEmbedderNotSet  = errors.New("embedder not set")
	ErrLLMNotSet       = errors.New("LLM client not set")
)

// QAService runs the retrieval-and-answer pipeline: embed the query, rank
// knowledge units by similarity, filter by threshold, and synthesize a
// grounded answer. All collaborators are fixed at construction and treated as
// read-only afterwards.
type QAService struct {
	units           []models.KnowledgeUnit
	index           repository.VectorIndex
	embedder        Embedder
	llm             LLM
	fallback        models.FallbackPolicy
	rewriterEnabled bool
}

// QAServiceOption is a functional option for QAService
type QAServiceOption func(*QAService)

// WithKnowledgeUnits sets the loaded knowledge store
func WithKnowledgeUnits(units []models.KnowledgeUnit) QAServiceOption {
	return func(s *QAService) {
		s.units = units
	}
}

// WithVectorIndex sets the vector index
func WithVectorIndex(index repository.VectorIndex) QAServiceOption {
	return func(s *QAService) {
		s.index = index
	}
}

// WithEmbedder sets the embedding provider
func WithEmbedder(embedder Embedder) QAServiceOption {
	return func(s *QAService) {
		s.embedder = embedder
	}
}

// WithLLM sets the LLM client
func WithLLM(llm LLM) QAServiceOption {
	return func(s *QAService) {
		s.llm = llm
	}
}

// WithFallbackPolicy sets what happens when no match survives filtering
func WithFallbackPolicy(policy models.FallbackPolicy) QAServiceOption {
	return func(s *QAService) {
		s.fallback = policy
	}
}

// WithRewriter enables the subquery rewriting stage
func WithRewriter(enabled bool) QAServiceOption {
	return func(s *QAService) {
		s.rewriterEnabled = enabled
	}
}

// NewQAService creates a new QA service
func NewQAService(opts ...QAServiceOption) *QAService {
	s := &QAService{fallback: models.FallbackStrict}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve embeds each query, searches the index for its top-k matches,
// concatenates all matches in query input order, deduplicates by knowledge
// unit keeping the first occurrence, and sorts best-first for the index's
// metric.
func (s *QAService) Retrieve(ctx context.Context, queries []string, topK int) (models.RetrievalResult, error) {
	if len(s.units) == 0 {
		return models.RetrievalResult{}, ErrKnowledgeNotSet
	}
	if s.index == nil {
		return models.RetrievalResult{}, ErrIndexNotSet
	}
	if s.embedder == nil {
		return models.RetrievalResult{}, ErrEmbedderNotSet
	}

	result := models.RetrievalResult{Metric: s.index.Metric()}
	seen := make(map[int]bool)

	for _, query := range queries {
		embedding, err := s.embedder.Embed(ctx, query, TaskRetrievalQuery)
		if err != nil {
			return models.RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
		}

		matches, err := s.index.Search(ctx, embedding, topK)
		if err != nil {
			return models.RetrievalResult{}, fmt.Errorf("index search failed: %w", err)
		}

		for _, match := range matches {
			if match.UnitID < 0 || match.UnitID >= len(s.units) {
				return models.RetrievalResult{}, fmt.Errorf("index returned unknown unit %d", match.UnitID)
			}
			if seen[match.UnitID] {
				continue
			}
			seen[match.UnitID] = true
			result.Matches = append(result.Matches, models.ScoredMatch{
				Unit:  s.units[match.UnitID],
				Score: match.Score,
				Query: query,
			})
		}
	}

	result.Sort()
	return result, nil
}

// Filter keeps only matches that pass the threshold, inclusively, in the
// result's metric sense. It never mutates its input.
func (s *QAService) Filter(result models.RetrievalResult, threshold float64) models.RetrievalResult {
	filtered := models.RetrievalResult{Metric: result.Metric}
	for _, match := range result.Matches {
		if result.Keep(match.Score, threshold) {
			filtered.Matches = append(filtered.Matches, match)
		}
	}
	return filtered
}

// Synthesize composes a grounded prompt from the retrieved context and asks
// the LLM for an answer. LLM failures resolve to the fixed error string and
// never propagate to the caller.
func (s *QAService) Synthesize(ctx context.Context, query string, matches []models.ScoredMatch) string {
	if s.llm == nil {
		log.Printf("Warning: %v", ErrLLMNotSet)
		return ErrorAnswer
	}

	contexts := make([]string, len(matches))
	for i, match := range matches {
		contexts[i] = match.Unit.Body
	}

	prompt := fmt.Sprintf(finalPromptTemplate, query, strings.Join(contexts, "\n\n"))
	messages := []models.Message{
		{Role: models.RoleSystem, Content: synthesisSystemInstruction},
		{Role: models.RoleUser, Content: prompt},
	}

	answer, err := s.llm.Generate(ctx, messages, 0.2, 512)
	if err != nil {
		log.Printf("Warning: answer synthesis failed: %v", err)
		return ErrorAnswer
	}

	return answer
}

// Search runs the full pipeline for one query. It never returns an error:
// every failure resolves to a fixed answer string. When no match survives
// filtering under the strict policy, the refusal is returned without an LLM
// call.
func (s *QAService) Search(ctx context.Context, query string, threshold float64, topK int) models.AnswerOutcome {
	queries := []string{query}
	if s.rewriterEnabled {
		queries = s.rewrite(ctx, query)
	}

	result, err := s.Retrieve(ctx, queries, topK)
	if err != nil {
		log.Printf("Warning: retrieval failed: %v", err)
		return models.AnswerOutcome{Text: ErrorAnswer, Confidence: 0.0}
	}

	filtered := s.Filter(result, threshold)
	if len(filtered.Matches) == 0 {
		if s.fallback == models.FallbackKeepBest && len(result.Matches) > 0 {
			filtered.Matches = result.Matches[:1]
		} else {
			return models.AnswerOutcome{Text: RefusalAnswer, Confidence: 0.0}
		}
	}

	answer := s.Synthesize(ctx, query, filtered.Matches)
	return models.AnswerOutcome{Text: answer, Confidence: filtered.Matches[0].Score}
}
