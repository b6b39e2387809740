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

// PreferencesRepository persists preferences and profiles.
type PreferencesRepository struct {
	db              *sql.DB
	defaultServings int
}

// NewPreferencesRepository creates a new PreferencesRepository. defaultServings
// fills profiles that were never saved.
func NewPreferencesRepository(d *sql.DB, defaultServings int) *PreferencesRepository {
	if defaultServings <= 0 {
		defaultServings = DefaultServingsPerMeal
	}
	return &PreferencesRepository{db: d, defaultServings: defaultServings}
}

// GetPreferences returns the saved preferences, or DefaultPreferences.
func (r *PreferencesRepository) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM preferences WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to get preferences: %w", err)
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return prefs, nil
}

// SavePreferences stores prefs for userID. Linked recipes are resolved at
// generation time and never stored.
func (r *PreferencesRepository) SavePreferences(ctx context.Context, userID string, prefs Preferences) error {
	prefs.CommonMenuSettings.LinkedUserRecipes = nil
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), database.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// GetProfile returns the saved profile, or one with default servings.
func (r *PreferencesRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p := Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT display_name, default_servings FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.DisplayName, &p.DefaultServings)
	if errors.Is(err, sql.ErrNoRows) {
		p.DefaultServings = r.defaultServings
		return &p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// SaveProfile stores a profile.
func (r *PreferencesRepository) SaveProfile(ctx context.Context, p Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, default_servings, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET display_name = excluded.display_name,
			default_servings = excluded.default_servings, updated_at = excluded.updated_at`,
		p.UserID, p.DisplayName, p.DefaultServings, database.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
