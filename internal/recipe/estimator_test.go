package recipe

import (
	"context"
	"errors"
	"testing"

	"mealmapp/internal/llm"
	"mealmapp/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTextGenerator is a mock implementation of llm.TextGenerator for testing.
type mockTextGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.lastPrompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   shared.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, Model: "test"},
	}, nil
}

func TestEstimatorComplete(t *testing.T) {
	ctx := context.Background()
	rec := Recipe{
		ID:          "local_1",
		Name:        "Lentil Soup",
		MealTypes:   []string{"lunch", "dinner"},
		Ingredients: []Ingredient{{Name: "red lentils", Quantity: 250, Unit: "g"}, {Name: "onion", Quantity: 1}},
	}

	t.Run("FillsMissingValues", func(t *testing.T) {
		gen := &mockTextGenerator{response: "```json\n{\"calories\": 420, \"servings\": 4, \"estimated_price\": 6.5}\n```"}
		out, meta, err := NewEstimator(gen, "").Complete(ctx, rec)
		require.NoError(t, err)

		assert.Equal(t, 420.0, out.Calories)
		assert.Equal(t, 4.0, out.Servings)
		require.NotNil(t, out.EstimatedPrice)
		assert.Equal(t, 6.5, *out.EstimatedPrice)

		assert.Equal(t, "Estimator", meta.AgentName)
		assert.Equal(t, 120, meta.Usage.TotalTokens)

		assert.Contains(t, gen.lastPrompt, "Recipe: Lentil Soup")
		assert.Contains(t, gen.lastPrompt, "- 250 g red lentils")
		assert.Contains(t, gen.lastPrompt, "lunch, dinner")
		assert.Contains(t, gen.lastPrompt, "EUR")
	})

	t.Run("KeepsKnownValues", func(t *testing.T) {
		known := rec
		known.Calories = 300
		known.Servings = 2
		gen := &mockTextGenerator{response: `{"calories": 999, "servings": 9, "estimated_price": 4}`}

		out, _, err := NewEstimator(gen, "USD").Complete(ctx, known)
		require.NoError(t, err)
		assert.Equal(t, 300.0, out.Calories)
		assert.Equal(t, 2.0, out.Servings)
		assert.Equal(t, 4.0, *out.EstimatedPrice)
		assert.Contains(t, gen.lastPrompt, "USD")
	})

	t.Run("LLMError", func(t *testing.T) {
		gen := &mockTextGenerator{err: errors.New("quota exceeded")}
		out, _, err := NewEstimator(gen, "").Complete(ctx, rec)
		assert.Error(t, err)
		assert.Equal(t, rec, out)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		gen := &mockTextGenerator{response: "not json"}
		_, meta, err := NewEstimator(gen, "").Complete(ctx, rec)
		assert.Error(t, err)
		assert.Equal(t, 120, meta.Usage.TotalTokens, "usage is reported even when parsing fails")
	})
}
