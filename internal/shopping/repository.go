package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mealmapp/internal/database"
)

// ErrNotFound is returned when no shopping list matches.
var ErrNotFound = errors.New("shopping list not found")

// Repository handles persistence of shopping lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save creates a new shopping list in the database.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (user_id, menu_id, items, created_at) VALUES (?, ?, ?, ?)`,
		list.UserID, list.MenuID, string(itemsJSON), database.FormatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read shopping list id: %w", err)
	}
	list.ID = id
	list.CreatedAt = createdAt
	return id, nil
}

// GetByMenuID retrieves the shopping list of a menu.
func (r *Repository) GetByMenuID(ctx context.Context, menuID int64) (*ShoppingList, error) {
	return r.getOne(ctx, `
		SELECT id, user_id, menu_id, items, created_at FROM shopping_lists
		WHERE menu_id = ? ORDER BY id DESC LIMIT 1`, menuID)
}

// LatestByUser retrieves the most recent shopping list of a user.
func (r *Repository) LatestByUser(ctx context.Context, userID string) (*ShoppingList, error) {
	return r.getOne(ctx, `
		SELECT id, user_id, menu_id, items, created_at FROM shopping_lists
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*ShoppingList, error) {
	var (
		list             ShoppingList
		items, createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&list.ID, &list.UserID, &list.MenuID, &items, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	if list.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &list, nil
}
