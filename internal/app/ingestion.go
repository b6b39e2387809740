package app

import (
	"context"
	"errors"
	"fmt"

	"mealmapp/internal/recipe"
	"mealmapp/internal/storage"

	"go.uber.org/zap"
)

// ImportRecipes loads every recipe file from dir into userID's catalog.
// Recipes whose stored copy carries the same update time are skipped.
// It returns the number of recipes written.
func (a *App) ImportRecipes(ctx context.Context, userID, dir string) (int, error) {
	store, err := storage.NewRecipeStore(dir)
	if err != nil {
		return 0, err
	}
	recipes, err := store.ListAll()
	if err != nil {
		return 0, fmt.Errorf("failed to list recipe files: %w", err)
	}

	imported := 0
	for _, rec := range recipes {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if rec.Name == "" {
			a.log.Warn("skipping recipe without name", zap.String("recipe_id", rec.ID))
			continue
		}
		if rec.ID == "" {
			rec.ID = recipe.NewLocalID()
		}

		existing, err := a.recipeRepo.Get(ctx, userID, rec.ID)
		switch {
		case err == nil && rec.UpdatedAt != "" && existing.UpdatedAt == rec.UpdatedAt:
			a.log.Debug("recipe up to date, skipping", zap.String("recipe_id", rec.ID))
			continue
		case err != nil && !errors.Is(err, recipe.ErrNotFound):
			return imported, err
		}

		if err := a.recipeRepo.Save(ctx, userID, rec); err != nil {
			return imported, err
		}
		imported++
	}

	a.log.Info("recipes imported", zap.String("user_id", userID), zap.Int("imported", imported), zap.Int("found", len(recipes)))
	return imported, nil
}

// ExportRecipes writes userID's recipes to dir, one file per recipe.
func (a *App) ExportRecipes(ctx context.Context, userID, dir string) (int, error) {
	store, err := storage.NewRecipeStore(dir)
	if err != nil {
		return 0, err
	}
	recipes, err := a.recipeRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, rec := range recipes {
		if err := store.Save(rec); err != nil {
			return 0, err
		}
	}
	a.log.Info("recipes exported", zap.String("user_id", userID), zap.Int("count", len(recipes)), zap.String("dir", dir))
	return len(recipes), nil
}
