package handlers

import (
	"context"
	"net/http"

	"faqbot-backend/models"

	"github.com/gin-gonic/gin"
)

// Searcher is the core pipeline contract consumed by the front ends. It never
// returns an error: all failures resolve to an answer string with confidence
// 0.0.
type Searcher interface {
	Search(ctx context.Context, query string, threshold float64, topK int) models.AnswerOutcome
}

// webFallbackAnswer is returned by the HTTP endpoint when the pipeline
// produced no answer text at all.
const webFallbackAnswer = "Sorry, I don't have info on that. Please check the official PGDBA website."

// ChatHandler handles HTTP chat requests
type ChatHandler struct {
	qa        Searcher
	threshold float64
	topK      int
}

// NewChatHandler creates a new chat handler with the configured defaults
func NewChatHandler(qa Searcher, threshold float64, topK int) *ChatHandler {
	return &ChatHandler{
		qa:        qa,
		threshold: threshold,
		topK:      topK,
	}
}

// Chat handles GET /api/chat?query=...
func (h *ChatHandler) Chat(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_QUERY",
				"message": "query parameter is required",
			},
		})
		return
	}

	outcome := h.qa.Search(c.Request.Context(), query, h.threshold, h.topK)
	if outcome.Text == "" {
		outcome.Text = webFallbackAnswer
	}

	c.JSON(http.StatusOK, outcome)
}
