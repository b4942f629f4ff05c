package handlers

import (
	"context"
	"log"
	"net/http"

	"faqbot-backend/models"
	"faqbot-backend/service"
	"faqbot-backend/telegram"

	"github.com/gin-gonic/gin"
)

// Sender delivers replies back to a Telegram chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// telegramErrorAnswer is sent in private chats when handling an update fails.
const telegramErrorAnswer = "Sorry, an error occurred. Please try again later."

// TelegramHandler consumes Telegram webhook updates and applies the
// reply-or-stay-silent policy: private chats always get the answer, group
// chats only when the answer is confident and not the refusal sentence.
type TelegramHandler struct {
	qa        Searcher
	bot       Sender
	metric    models.Metric
	threshold float64
	topK      int
}

// NewTelegramHandler creates a new telegram webhook handler. metric must be
// the metric the pipeline's index scores with, so the confidence gate compares
// in the same sense as threshold filtering.
func NewTelegramHandler(qa Searcher, bot Sender, metric models.Metric, threshold float64, topK int) *TelegramHandler {
	return &TelegramHandler{
		qa:        qa,
		bot:       bot,
		metric:    metric,
		threshold: threshold,
		topK:      topK,
	}
}

// Webhook handles POST /webhook. It always answers 200 so Telegram does not
// redeliver updates we failed on.
func (h *TelegramHandler) Webhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("Warning: malformed webhook update: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}

	h.handleUpdate(c.Request.Context(), update)
	c.String(http.StatusOK, "OK")
}

func (h *TelegramHandler) handleUpdate(ctx context.Context, update telegram.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chat := update.Message.Chat
	query := update.Message.Text
	log.Printf("[%s] Received: %s", chat.Type, query)

	outcome := h.qa.Search(ctx, query, h.threshold, h.topK)
	log.Printf("Answer: %s Confidence: %.4f", outcome.Text, outcome.Confidence)

	if chat.IsPrivate() {
		// Always reply in DMs
		text := outcome.Text
		if text == "" {
			text = telegramErrorAnswer
		}
		if err := h.bot.SendMessage(ctx, chat.ID, text); err != nil {
			log.Printf("Warning: failed to send reply: %v", err)
		}
		return
	}

	// Group chat: only reply if confident and the text is a real answer.
	// Confidence is a score in the index's metric, so the comparison sense
	// follows the metric; under L2 a failure's sentinel 0.0 would read as a
	// perfect distance, so refusals and error apologies are checked by string.
	if h.metric.Keep(outcome.Confidence, h.threshold) &&
		outcome.Text != service.RefusalAnswer && outcome.Text != service.ErrorAnswer {
		if err := h.bot.SendMessage(ctx, chat.ID, outcome.Text); err != nil {
			log.Printf("Warning: failed to send reply: %v", err)
		}
		return
	}
	log.Printf("Skipped replying (low confidence or irrelevant)")
}
