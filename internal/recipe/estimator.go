package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"mealmapp/internal/llm"
	"mealmapp/internal/shared"
)

//go:embed estimator_prompt.md
var estimatorPrompt string

const estimatorAgentName = "Estimator"

var estimatorTemplate = template.Must(
	template.New("estimator").Funcs(template.FuncMap{"join": strings.Join}).Parse(estimatorPrompt),
)

// Estimate is the model's answer for one recipe.
type Estimate struct {
	Calories       float64  `json:"calories"`
	Servings       float64  `json:"servings"`
	EstimatedPrice *float64 `json:"estimated_price"`
}

// Estimator fills in missing calories, servings and price using an LLM.
type Estimator struct {
	textGen  llm.TextGenerator
	currency string
}

// NewEstimator creates a new Estimator. Prices are requested in currency.
func NewEstimator(textGen llm.TextGenerator, currency string) *Estimator {
	if currency == "" {
		currency = "EUR"
	}
	return &Estimator{textGen: textGen, currency: currency}
}

// Complete returns rec with the missing values estimated. Values already
// present on rec are kept.
func (e *Estimator) Complete(ctx context.Context, rec Recipe) (Recipe, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: estimatorAgentName}

	prompt, err := e.buildPrompt(rec)
	if err != nil {
		return rec, meta, err
	}

	resp, err := e.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return rec, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var est Estimate
	if err := json.Unmarshal([]byte(cleanJSON(resp.Content)), &est); err != nil {
		return rec, meta, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}

	if rec.Servings <= 0 && est.Servings > 0 {
		rec.Servings = est.Servings
	}
	if rec.Calories <= 0 && est.Calories > 0 {
		rec.Calories = est.Calories
	}
	if rec.EstimatedPrice == nil && est.EstimatedPrice != nil && *est.EstimatedPrice >= 0 {
		rec.EstimatedPrice = Price(*est.EstimatedPrice)
	}
	return rec, meta, nil
}

func (e *Estimator) buildPrompt(rec Recipe) (string, error) {
	data := struct {
		Recipe
		Currency string
	}{rec, e.currency}

	var buf bytes.Buffer
	if err := estimatorTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render estimator prompt: %w", err)
	}
	return buf.String(), nil
}

// cleanJSON strips a markdown code fence some models wrap around JSON.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
