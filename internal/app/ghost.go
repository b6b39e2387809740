package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"mealmapp/internal/ghost"
	"mealmapp/internal/metrics"
	"mealmapp/internal/planner"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shopping"

	"go.uber.org/zap"
)

// ghostIDPrefix keeps Ghost post ids stable across syncs without the
// per-copy separator of shared recipe ids.
const ghostIDPrefix = "ghost-"

// SyncGhostRecipes imports every recipe post of the configured Ghost blog
// into userID's catalog. Posts unchanged since the last sync are skipped.
func (a *App) SyncGhostRecipes(ctx context.Context, userID string) (int, error) {
	if a.ghostClient == nil {
		return 0, ErrGhostDisabled
	}

	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	a.log.Info("fetched ghost posts", zap.Int("count", len(posts)))

	synced := 0
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		id := ghostIDPrefix + post.ID

		existing, err := a.recipeRepo.Get(ctx, userID, id)
		if err == nil && existing.UpdatedAt == post.UpdatedAt {
			a.log.Debug("ghost recipe up to date", zap.String("title", post.Title))
			continue
		}
		if err != nil && !errors.Is(err, recipe.ErrNotFound) {
			return synced, err
		}

		res, err := a.recipeClipper.ExtractHTML(ctx, userID, post.URL, post.HTML)
		if res != nil {
			for _, meta := range res.Metas {
				a.recordLLM(ctx, metrics.MapUsage(meta.AgentName, meta.Usage, meta.Latency), nil)
			}
		}
		if err != nil {
			a.log.Warn("failed to extract ghost recipe", zap.String("title", post.Title), zap.Error(err))
			continue
		}

		rec := res.Recipe
		rec.ID = id
		rec.UpdatedAt = post.UpdatedAt
		if rec.Name == "" {
			rec.Name = post.Title
		}
		if err := a.recipeRepo.Save(ctx, userID, rec); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

var menuPostTemplate = template.Must(template.New("menu").Parse(`
<h2>Menu</h2>
{{range .Days}}<h3>{{.Label}}</h3>
<ul>{{range .Meals}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{if .Items}}<h2>Shopping list</h2>
<ul>{{range .Items}}<li>{{.Name}}{{if gt .Quantity 0.0}}: {{.Quantity}} {{.Unit}}{{end}}</li>{{end}}</ul>{{end}}
`))

type menuPostDay struct {
	Label string
	Meals []string
}

// PublishMenu posts userID's latest menu and shopping list to the Ghost
// blog as a draft and returns the created post.
func (a *App) PublishMenu(ctx context.Context, userID string) (*ghost.Post, error) {
	if a.ghostClient == nil {
		return nil, ErrGhostDisabled
	}

	menu, err := a.menuRepo.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	var items []shopping.Item
	if list, err := a.shoppingRepo.GetByMenuID(ctx, menu.ID); err == nil {
		items = list.Items
	} else if !errors.Is(err, shopping.ErrNotFound) {
		return nil, err
	}

	html, err := renderMenuPost(menu, items)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Menu for the week of %s", menu.WeekStart.Format("January 2, 2006"))
	post, err := a.ghostClient.CreatePost(ctx, title, html, false)
	if err != nil {
		return nil, fmt.Errorf("failed to publish menu: %w", err)
	}
	a.log.Info("menu published", zap.String("user_id", userID), zap.String("post_id", post.ID))
	return post, nil
}

func renderMenuPost(menu *planner.Menu, items []shopping.Item) (string, error) {
	data := struct {
		Days  []menuPostDay
		Items []shopping.Item
	}{Items: items}

	for i, day := range menu.Grid.Days {
		d := menuPostDay{Label: menu.WeekStart.AddDate(0, 0, i).Format("Monday, Jan 2")}
		for _, slot := range day.Slots {
			if slot.Filled() {
				d.Meals = append(d.Meals, slot.Recipe.Name)
			}
		}
		data.Days = append(data.Days, d)
	}

	var buf bytes.Buffer
	if err := menuPostTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render menu post: %w", err)
	}
	return buf.String(), nil
}
