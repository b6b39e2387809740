package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsageAdd(t *testing.T) {
	a := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	b := TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5, Model: "gemini-1.5-flash"}

	assert.Equal(t, TokenUsage{PromptTokens: 13, CompletionTokens: 7, TotalTokens: 20, Model: "gemini-1.5-flash"}, a.Add(b))
}

func TestAgentMetaLatencyMS(t *testing.T) {
	assert.Equal(t, int64(1500), AgentMeta{Latency: 1500 * time.Millisecond}.LatencyMS())
}
