package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mealmapp/internal/recipe"
)

// RecipeStore provides file-based storage for recipe import and export.
// Each recipe lives in its own <id>.json file.
type RecipeStore struct {
	basePath string
}

// NewRecipeStore creates a new RecipeStore and ensures the base directory exists.
func NewRecipeStore(basePath string) (*RecipeStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &RecipeStore{basePath: basePath}, nil
}

// sanitizeID makes a recipe id safe for filenames.
func sanitizeID(id string) string {
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(id)
}

func (s *RecipeStore) path(recipeID string) string {
	return filepath.Join(s.basePath, sanitizeID(recipeID)+".json")
}

// Save stores a recipe, replacing any previous file for the same id.
func (s *RecipeStore) Save(rec recipe.Recipe) error {
	if rec.ID == "" {
		return fmt.Errorf("failed to save recipe %q: missing id", rec.Name)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	if err := os.WriteFile(s.path(rec.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

// Load retrieves a recipe by id.
func (s *RecipeStore) Load(recipeID string) (*recipe.Recipe, error) {
	return loadFile(s.path(recipeID))
}

// Exists checks if a recipe file exists.
func (s *RecipeStore) Exists(recipeID string) bool {
	_, err := os.Stat(s.path(recipeID))
	return err == nil
}

// ListAll loads every recipe file in the store, sorted by id.
func (s *RecipeStore) ListAll() ([]recipe.Recipe, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe files: %w", err)
	}

	recipes := make([]recipe.Recipe, 0, len(matches))
	for _, match := range matches {
		rec, err := loadFile(match)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *rec)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].ID < recipes[j].ID })
	return recipes, nil
}

func loadFile(path string) (*recipe.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read recipe file %s: %w", filepath.Base(path), recipe.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	var rec recipe.Recipe
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
