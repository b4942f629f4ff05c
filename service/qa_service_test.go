package service

import (
	"context"
	"errors"
	"testing"

	"faqbot-backend/models"
	"faqbot-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors by exact text match.
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeLLM replays scripted responses and records every prompt it saw.
type fakeLLM struct {
	responses []fakeResponse
	prompts   []string
	calls     int
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeLLM) Generate(ctx context.Context, messages []models.Message, temperature float32, maxTokens int32) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, models.FlattenMessages(messages))
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp.text, resp.err
}

// fakeL2Index returns canned distance-ordered matches.
type fakeL2Index struct {
	matches []models.IndexMatch
}

func (f *fakeL2Index) Search(ctx context.Context, query []float64, k int) ([]models.IndexMatch, error) {
	if k > len(f.matches) {
		k = len(f.matches)
	}
	return f.matches[:k], nil
}

func (f *fakeL2Index) Metric() models.Metric { return models.MetricL2 }
func (f *fakeL2Index) Len() int              { return len(f.matches) }

var testUnits = []models.KnowledgeUnit{
	{ID: 0, Title: "Admission Requirements", Body: "Admission Requirements\nApplicants need a bachelor's degree."},
	{ID: 1, Title: "Fees", Body: "Fees\nThe program fee is paid per semester."},
}

func newTestService(t *testing.T, llm LLM, opts ...QAServiceOption) (*QAService, *fakeEmbedder) {
	t.Helper()

	index, err := repository.NewMemoryIndex([][]float64{
		{1, 0}, // Admission Requirements
		{0, 1}, // Fees
	})
	require.NoError(t, err)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"What degree do I need?": {0.95, 0.05},
		"Tell me about the fees": {0.05, 0.95},
		"what is the weather":    {-1, 0},
	}}

	base := []QAServiceOption{
		WithKnowledgeUnits(testUnits),
		WithVectorIndex(index),
		WithEmbedder(embedder),
		WithLLM(llm),
	}
	return NewQAService(append(base, opts...)...), embedder
}

func TestRetrieve_DeduplicatesAcrossSubqueries(t *testing.T) {
	svc, embedder := newTestService(t, &fakeLLM{})
	embedder.vectors["degree needed"] = []float64{0.9, 0.1}

	result, err := svc.Retrieve(context.Background(), []string{"What degree do I need?", "degree needed"}, 2)
	require.NoError(t, err)

	// Both sub-queries hit both units; each unit appears once, attributed to
	// the first sub-query in input order.
	require.Len(t, result.Matches, 2)
	for _, match := range result.Matches {
		assert.Equal(t, "What degree do I need?", match.Query)
	}
	assert.Equal(t, 0, result.Matches[0].Unit.ID)
	assert.GreaterOrEqual(t, result.Matches[0].Score, result.Matches[1].Score)
}

func TestRetrieve_EmptyStore(t *testing.T) {
	svc := NewQAService(WithEmbedder(&fakeEmbedder{}), WithLLM(&fakeLLM{}))
	_, err := svc.Retrieve(context.Background(), []string{"anything"}, 2)
	assert.ErrorIs(t, err, ErrKnowledgeNotSet)
}

func TestFilter_ThresholdInclusive(t *testing.T) {
	svc, _ := newTestService(t, &fakeLLM{})

	result := models.RetrievalResult{
		Metric: models.MetricCosine,
		Matches: []models.ScoredMatch{
			{Unit: testUnits[0], Score: 0.5},
			{Unit: testUnits[1], Score: 0.3},
			{Unit: testUnits[1], Score: 0.3 - 1e-9},
		},
	}

	filtered := svc.Filter(result, 0.3)
	require.Len(t, filtered.Matches, 2)
	assert.Equal(t, 0.5, filtered.Matches[0].Score)
	assert.Equal(t, 0.3, filtered.Matches[1].Score)
}

func TestFilter_L2KeepsBelowThreshold(t *testing.T) {
	svc, _ := newTestService(t, &fakeLLM{})

	result := models.RetrievalResult{
		Metric: models.MetricL2,
		Matches: []models.ScoredMatch{
			{Unit: testUnits[0], Score: 0.2},
			{Unit: testUnits[1], Score: 0.5},
		},
	}

	filtered := svc.Filter(result, 0.3)
	require.Len(t, filtered.Matches, 1)
	assert.Equal(t, 0.2, filtered.Matches[0].Score)
}

func TestRetrieve_L2SortsAscending(t *testing.T) {
	index := &fakeL2Index{matches: []models.IndexMatch{
		{UnitID: 1, Score: 0.4},
		{UnitID: 0, Score: 0.1},
	}}
	svc := NewQAService(
		WithKnowledgeUnits(testUnits),
		WithVectorIndex(index),
		WithEmbedder(&fakeEmbedder{}),
		WithLLM(&fakeLLM{}),
	)

	result, err := svc.Retrieve(context.Background(), []string{"anything"}, 2)
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, models.MetricL2, result.Metric)
	assert.Equal(t, 0.1, result.Matches[0].Score)
	assert.Equal(t, 0.4, result.Matches[1].Score)
}

func TestSearch_AnswersFromContext(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{{text: "You need a bachelor's degree to apply."}}}
	svc, _ := newTestService(t, llm)

	outcome := svc.Search(context.Background(), "What degree do I need?", 0.3, 2)

	assert.Contains(t, outcome.Text, "bachelor's degree")
	assert.GreaterOrEqual(t, outcome.Confidence, 0.3)
	require.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.prompts[0], "Applicants need a bachelor's degree.")
	assert.Contains(t, llm.prompts[0], "USER QUESTION: What degree do I need?")
	assert.Contains(t, llm.prompts[0], RefusalAnswer)
}

func TestSearch_RefusalWithoutLLMCall(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{{text: "should never be used"}}}
	svc, _ := newTestService(t, llm)

	outcome := svc.Search(context.Background(), "what is the weather", 0.3, 2)

	assert.Equal(t, RefusalAnswer, outcome.Text)
	assert.Equal(t, 0.0, outcome.Confidence)
	assert.Equal(t, 0, llm.calls, "refusal must short-circuit before the LLM")
}

func TestSearch_KeepBestFallback(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{{text: "Best effort answer."}}}
	svc, _ := newTestService(t, llm, WithFallbackPolicy(models.FallbackKeepBest))

	outcome := svc.Search(context.Background(), "what is the weather", 0.3, 2)

	assert.Equal(t, "Best effort answer.", outcome.Text)
	assert.Equal(t, 1, llm.calls)
	// Confidence reports the kept match's score even though it fell below
	// the threshold.
	assert.Less(t, outcome.Confidence, 0.3)
}

func TestSearch_SynthesisFailure(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{{err: errors.New("quota exceeded")}}}
	svc, _ := newTestService(t, llm)

	outcome := svc.Search(context.Background(), "What degree do I need?", 0.3, 2)

	assert.Equal(t, ErrorAnswer, outcome.Text)
	// Confidence reflects retrieval quality even though synthesis failed.
	assert.GreaterOrEqual(t, outcome.Confidence, 0.3)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	llm := &fakeLLM{}
	svc, embedder := newTestService(t, llm)
	embedder.err = errors.New("provider unavailable")

	outcome := svc.Search(context.Background(), "What degree do I need?", 0.3, 2)

	assert.Equal(t, ErrorAnswer, outcome.Text)
	assert.Equal(t, 0.0, outcome.Confidence)
	assert.Equal(t, 0, llm.calls)
}

func TestSearch_Idempotent(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{{text: "Fixed answer."}}}
	svc, _ := newTestService(t, llm)

	first := svc.Search(context.Background(), "What degree do I need?", 0.3, 2)
	second := svc.Search(context.Background(), "What degree do I need?", 0.3, 2)

	assert.Equal(t, first, second)
}

func TestSearch_RewriterFailSoft(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{text: "this is not a list"},         // rewriter output, unparsable
		{text: "Answer from original query"}, // synthesis
	}}
	svc, _ := newTestService(t, llm, WithRewriter(true))

	outcome := svc.Search(context.Background(), "What degree do I need?", 0.3, 2)

	assert.Equal(t, "Answer from original query", outcome.Text)
	assert.Equal(t, 2, llm.calls)
}
