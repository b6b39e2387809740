package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealmapp/internal/database"

	"go.uber.org/zap"
)

// Repository is a database-backed repository for recipes.
type Repository struct {
	db  *sql.DB
	log *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: d, log: log}
}

// Save inserts or updates a recipe in userID's catalog. Ids are scoped per
// user, so a write never touches another user's recipe. The stored copy is
// always owned by userID.
func (r *Repository) Save(ctx context.Context, userID string, rec Recipe) error {
	if rec.ID == "" {
		return fmt.Errorf("failed to save recipe %q: missing id", rec.Name)
	}
	if userID == "" {
		return fmt.Errorf("failed to save recipe %s: missing owner", rec.ID)
	}
	rec.SourceUserID = userID

	updatedAt := time.Now()
	if rec.UpdatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, rec.UpdatedAt)
		if err != nil {
			r.log.Warn("invalid recipe updated_at, using current time",
				zap.String("recipe_id", rec.ID), zap.String("updated_at", rec.UpdatedAt), zap.Error(err))
		} else {
			updatedAt = parsed
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, user_id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		rec.ID, userID, string(data), database.FormatTime(updatedAt))
	if err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves one of userID's recipes by its ID.
func (r *Repository) Get(ctx context.Context, userID, id string) (*Recipe, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE user_id = ? AND id = ?`, userID, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// ListByUser retrieves every recipe owned by userID.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Recipe, error) {
	return r.ListByUsers(ctx, []string{userID})
}

// ListByUsers retrieves the recipes of several users, ordered by owner and id.
func (r *Repository) ListByUsers(ctx context.Context, userIDs []string) ([]Recipe, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, data FROM recipes WHERE user_id IN (`+placeholders+`) ORDER BY user_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			r.log.Warn("skipping recipe with invalid JSON", zap.String("recipe_id", id), zap.Error(err))
			continue
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	return recipes, nil
}

// Delete removes a recipe owned by userID.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of recipes owned by userID.
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
