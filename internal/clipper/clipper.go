package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mealmapp/internal/llm"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shared"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrNoRecipeData is returned when a page carries no recognizable recipe.
var ErrNoRecipeData = errors.New("no recipe data found on page")

const maxPageText = 20000

// Completer fills in missing nutrition and price data.
type Completer interface {
	Complete(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, shared.AgentMeta, error)
}

// Result is a clipped recipe plus metadata of any LLM calls made for it.
type Result struct {
	Recipe recipe.Recipe
	Metas  []shared.AgentMeta
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	httpClient *http.Client
	textGen    llm.TextGenerator
	estimator  Completer
	log        *zap.Logger
}

// NewClipper creates a new Clipper instance. textGen and estimator are
// optional: without textGen only pages with schema.org data can be clipped,
// without estimator missing values stay empty.
func NewClipper(textGen llm.TextGenerator, estimator Completer, log *zap.Logger) *Clipper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		textGen:    textGen,
		estimator:  estimator,
		log:        log,
	}
}

// ClipURL fetches the URL and turns it into a recipe owned by userID.
func (c *Clipper) ClipURL(ctx context.Context, userID, url string) (*Result, error) {
	doc, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	return c.extract(ctx, userID, url, doc)
}

// ExtractHTML turns an already fetched page into a recipe owned by userID.
func (c *Clipper) ExtractHTML(ctx context.Context, userID, sourceURL, html string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return c.extract(ctx, userID, sourceURL, doc)
}

func (c *Clipper) extract(ctx context.Context, userID, sourceURL string, doc *goquery.Document) (*Result, error) {
	res := &Result{}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	rec, ok := extractJSONLD(doc)
	if !ok {
		if c.textGen == nil {
			return nil, ErrNoRecipeData
		}
		extracted, meta, err := c.extractWithLLM(ctx, cleanText(doc))
		res.Metas = append(res.Metas, meta)
		if err != nil {
			return res, err
		}
		rec = extracted
	}

	rec.ID = recipe.NewLocalID()
	rec.SourceUserID = userID
	rec.SourceURL = sourceURL
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if rec.Name == "" {
		rec.Name = title
	}

	if c.estimator != nil && rec.NeedsEstimate() {
		completed, meta, err := c.estimator.Complete(ctx, rec)
		res.Metas = append(res.Metas, meta)
		if err != nil {
			c.log.Warn("failed to estimate clipped recipe", zap.String("url", sourceURL), zap.Error(err))
		} else {
			rec = completed
		}
	}

	res.Recipe = rec
	return res, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "mealmapp-clipper/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// cleanText returns the visible body text with noise elements removed.
func cleanText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}
	return text
}

type llmRecipe struct {
	Name        string              `json:"name"`
	Servings    float64             `json:"servings"`
	Calories    float64             `json:"calories"`
	MealTypes   []string            `json:"meal_types"`
	Tags        []string            `json:"tags"`
	Ingredients []recipe.Ingredient `json:"ingredients"`
}

func (c *Clipper) extractWithLLM(ctx context.Context, text string) (recipe.Recipe, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Clipper"}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe from the following page text.
Return the result strictly as a JSON object with this structure:
{
  "name": "Recipe Title",
  "servings": 4,
  "calories": 450,
  "meal_types": ["breakfast" | "lunch" | "dinner" | "snack" | "dessert"],
  "tags": ["vegetarian", "quick"],
  "ingredients": [{"name": "flour", "quantity": 200, "unit": "g"}]
}
"calories" is per serving and 0 when the page does not state it.
If the page contains no recipe, return {"name": ""}.

Page text:
%s
`, text)

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return recipe.Recipe{}, meta, fmt.Errorf("ai extraction failed: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var extracted llmRecipe
	if err := json.Unmarshal([]byte(resp.Content), &extracted); err != nil {
		return recipe.Recipe{}, meta, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if strings.TrimSpace(extracted.Name) == "" {
		return recipe.Recipe{}, meta, ErrNoRecipeData
	}

	return recipe.Recipe{
		Name:        extracted.Name,
		Servings:    extracted.Servings,
		Calories:    extracted.Calories,
		MealTypes:   normalizeMealTypes(extracted.MealTypes),
		Tags:        extracted.Tags,
		Ingredients: extracted.Ingredients,
	}, meta, nil
}
