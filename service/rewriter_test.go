package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringList_JSONArray(t *testing.T) {
	items, err := parseStringList(`["eligibility criteria", "degree requirement"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"eligibility criteria", "degree requirement"}, items)
}

func TestParseStringList_FencedJSON(t *testing.T) {
	raw := "```json\n[\"one\", \"two\"]\n```"
	items, err := parseStringList(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, items)
}

func TestParseStringList_PythonStyleQuotes(t *testing.T) {
	items, err := parseStringList(`['admission process', 'application deadline']`)
	require.NoError(t, err)
	assert.Equal(t, []string{"admission process", "application deadline"}, items)
}

func TestParseStringList_SurroundingProse(t *testing.T) {
	raw := `Here are the subqueries: ["fees", "scholarships"] hope that helps!`
	items, err := parseStringList(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"fees", "scholarships"}, items)
}

func TestParseStringList_EscapedQuote(t *testing.T) {
	items, err := parseStringList(`['bachelor\'s degree']`)
	require.NoError(t, err)
	assert.Equal(t, []string{"bachelor's degree"}, items)
}

func TestParseStringList_NoList(t *testing.T) {
	_, err := parseStringList("I cannot help with that.")
	assert.ErrorIs(t, err, ErrUnparsableList)
}

func TestParseStringList_EmptyList(t *testing.T) {
	_, err := parseStringList("[]")
	assert.ErrorIs(t, err, ErrUnparsableList)

	_, err = parseStringList(`["", "  "]`)
	assert.ErrorIs(t, err, ErrUnparsableList)
}

func TestRewrite_BoundsSubqueries(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{text: `["a", "b", "c", "d", "e"]`},
	}}
	svc := NewQAService(WithLLM(llm))

	subqueries := svc.rewrite(context.Background(), "original")
	assert.Equal(t, []string{"a", "b", "c"}, subqueries)
}

func TestRewrite_LLMFailureFallsBack(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{err: errors.New("network down")},
	}}
	svc := NewQAService(WithLLM(llm))

	subqueries := svc.rewrite(context.Background(), "original question")
	assert.Equal(t, []string{"original question"}, subqueries)
}

func TestRewrite_NilLLMFallsBack(t *testing.T) {
	svc := NewQAService(WithRewriter(true))

	subqueries := svc.rewrite(context.Background(), "original question")
	assert.Equal(t, []string{"original question"}, subqueries)
}

func TestRewrite_UnparsableFallsBack(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{text: "Sure! Here are some ideas without any list."},
	}}
	svc := NewQAService(WithLLM(llm))

	subqueries := svc.rewrite(context.Background(), "original question")
	assert.Equal(t, []string{"original question"}, subqueries)
}
