package shopping

import "time"

// Item is one aggregated line of a shopping list.
type Item struct {
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Recipes  []string `json:"recipes"`
}

// ShoppingList represents a shopping list for a weekly menu.
type ShoppingList struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	MenuID    int64     `json:"menu_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}
