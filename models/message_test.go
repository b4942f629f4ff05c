package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenMessages(t *testing.T) {
	flat := FlattenMessages([]Message{
		{Role: RoleSystem, Content: "You answer questions."},
		{Role: RoleUser, Content: "What is the deadline?"},
	})

	assert.Equal(t, "SYSTEM: You answer questions.\nUSER: What is the deadline?", flat)
}

func TestFlattenMessages_Empty(t *testing.T) {
	assert.Equal(t, "", FlattenMessages(nil))
}
