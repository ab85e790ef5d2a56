package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsage(t *testing.T) {
	assert.True(t, TokenUsage{Model: "gemini"}.Empty())
	assert.False(t, TokenUsage{TotalTokens: 3}.Empty())

	assert.Equal(t, 17, TokenUsage{PromptTokens: 12, CompletionTokens: 5}.Total())
	assert.Equal(t, 20, TokenUsage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 20}.Total())
}
