package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"faqbot-backend/models"
)

var (
	ErrEmptySource  = errors.New("knowledge source contains no usable units")
	ErrUnreadable   = errors.New("knowledge source could not be read")
	ErrMalformedFAQ = errors.New("FAQ source is not a valid JSON list")
)

// LoadDocument splits a plain-text knowledge document into paragraph units.
// Paragraphs are separated by blank lines; each unit's title is the
// paragraph's first non-empty line and its body is the full paragraph.
func LoadDocument(r io.Reader) ([]models.KnowledgeUnit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	units := make([]models.KnowledgeUnit, 0)
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		units = append(units, models.KnowledgeUnit{
			ID:    len(units),
			Title: firstLine(paragraph),
			Body:  paragraph,
		})
	}

	if len(units) == 0 {
		return nil, ErrEmptySource
	}
	return units, nil
}

// LoadFAQ reads a JSON list of {question, answer} records. Each unit's title
// is the question and its body is the formatted Q/A pair.
func LoadFAQ(r io.Reader) ([]models.KnowledgeUnit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var entries []models.FAQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFAQ, err)
	}

	units := make([]models.KnowledgeUnit, 0, len(entries))
	for _, entry := range entries {
		question := strings.TrimSpace(entry.Question)
		answer := strings.TrimSpace(entry.Answer)
		if question == "" || answer == "" {
			continue
		}
		units = append(units, models.KnowledgeUnit{
			ID:    len(units),
			Title: question,
			Body:  fmt.Sprintf("Q: %s\nA: %s", question, answer),
		})
	}

	if len(units) == 0 {
		return nil, ErrEmptySource
	}
	return units, nil
}

func firstLine(paragraph string) string {
	for _, line := range strings.Split(paragraph, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return paragraph
}
