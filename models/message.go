package models

import "strings"

// Role tags one side of an LLM exchange.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged block of an LLM prompt.
type Message struct {
	Role    Role
	Content string
}

// FlattenMessages concatenates role-tagged messages into the single plain-text
// prompt format the Gemini API expects, e.g. "SYSTEM: ...\nUSER: ...".
func FlattenMessages(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, strings.ToUpper(string(m.Role))+": "+m.Content)
	}
	return strings.Join(parts, "\n")
}
