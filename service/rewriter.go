package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"faqbot-backend/models"
)

// The rewriter widens recall by asking the LLM for alternative phrasings of
// the user's question before retrieval. It fails soft: any call or parse
// failure falls back to the original query, so the pipeline never blocks on
// malformed rewriter output.

var ErrUnparsableList = errors.New("LLM output is not a string list")

const maxSubqueries = 3

const rewritePrompt = "You are a helpful assistant for a FAQ chatbot. " +
	"Given the user's question, generate 1-3 concise subqueries that would help retrieve the most relevant FAQ entries. " +
	"Return them as a JSON array of strings.\n" +
	"User question: %s"

// rewrite expands a query into 1-3 subqueries for retrieval diversity. The
// original query is always a valid result.
func (s *QAService) rewrite(ctx context.Context, query string) []string {
	if s.llm == nil {
		log.Printf("Warning: %v. Using original query.", ErrLLMNotSet)
		return []string{query}
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: "You generate subqueries for FAQ retrieval."},
		{Role: models.RoleUser, Content: strings.Replace(rewritePrompt, "%s", query, 1)},
	}

	raw, err := s.llm.Generate(ctx, messages, 0.1, 128)
	if err != nil {
		log.Printf("Warning: subquery generation failed: %v. Using original query.", err)
		return []string{query}
	}

	subqueries, err := parseStringList(raw)
	if err != nil {
		log.Printf("Warning: could not parse subqueries: %v. Using original query.", err)
		return []string{query}
	}

	if len(subqueries) > maxSubqueries {
		subqueries = subqueries[:maxSubqueries]
	}
	return subqueries
}

// parseStringList extracts a non-empty list of strings from LLM output. It
// accepts a JSON array, optionally wrapped in markdown code fences, and falls
// back to scanning quoted items between the outermost brackets. The returned
// text is never evaluated as code.
func parseStringList(raw string) ([]string, error) {
	raw = stripCodeFences(raw)

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, ErrUnparsableList
	}
	body := raw[start : end+1]

	var items []string
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		items = scanQuoted(body[1 : len(body)-1])
	}

	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			cleaned = append(cleaned, item)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrUnparsableList
	}
	return cleaned, nil
}

func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// scanQuoted tokenizes single- or double-quoted items, honoring backslash
// escapes. Handles Python-style list output the JSON parser rejects.
func scanQuoted(body string) []string {
	var items []string
	var current strings.Builder
	var quote rune
	escaped := false
	inString := false

	for _, r := range body {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case inString && r == '\\':
			escaped = true
		case inString && r == quote:
			items = append(items, current.String())
			current.Reset()
			inString = false
		case inString:
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inString = true
		}
	}

	return items
}
