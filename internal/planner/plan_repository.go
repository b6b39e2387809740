package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mealmapp/internal/database"
)

// ErrMenuNotFound is returned when a user has no stored menu.
var ErrMenuNotFound = errors.New("menu not found")

// MenuRepository is a database-backed repository for weekly menus.
type MenuRepository struct {
	db *sql.DB
}

// NewMenuRepository creates a new MenuRepository.
func NewMenuRepository(d *sql.DB) *MenuRepository {
	return &MenuRepository{db: d}
}

// Save inserts a new menu and returns its id.
func (r *MenuRepository) Save(ctx context.Context, userID string, weekStart time.Time, grid WeeklyMenu) (int64, error) {
	data, err := json.Marshal(grid)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal menu grid: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO menus (user_id, week_start, grid, created_at) VALUES (?, ?, ?, ?)`,
		userID, weekStart.Format(time.DateOnly), string(data), database.FormatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to save menu for user %s: %w", userID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read menu id: %w", err)
	}
	return id, nil
}

// Latest returns the most recently created menu of userID.
func (r *MenuRepository) Latest(ctx context.Context, userID string) (*Menu, error) {
	menus, err := r.ListRecent(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(menus) == 0 {
		return nil, ErrMenuNotFound
	}
	return &menus[0], nil
}

// ListRecent retrieves the N most recent menus for a given user.
func (r *MenuRepository) ListRecent(ctx context.Context, userID string, limit int) ([]Menu, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, week_start, grid, created_at FROM menus
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent menus for user %s: %w", userID, err)
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		var (
			m                    Menu
			weekStart, createdAt string
			grid                 string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &weekStart, &grid, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		if m.WeekStart, err = time.Parse(time.DateOnly, weekStart); err != nil {
			return nil, fmt.Errorf("failed to parse week start: %w", err)
		}
		if m.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(grid), &m.Grid); err != nil {
			return nil, fmt.Errorf("failed to unmarshal menu grid: %w", err)
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menus: %w", err)
	}
	return menus, nil
}

// ExistsForWeek reports whether userID already has a menu for weekStart.
func (r *MenuRepository) ExistsForWeek(ctx context.Context, userID string, weekStart time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM menus WHERE user_id = ? AND week_start = ?`,
		userID, weekStart.Format(time.DateOnly)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check menu for week: %w", err)
	}
	return n > 0, nil
}
