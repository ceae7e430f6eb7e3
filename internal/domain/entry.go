package domain

import "time"

// Meal names used by the diary. Any other label is accepted and grouped
// under its own name.
const (
	MealBreakfast = "Breakfast"
	MealLunch     = "Lunch"
	MealDinner    = "Dinner"
	MealSnacks    = "Snacks"
)

// Meals lists the default meal slots in display order.
var Meals = []string{MealBreakfast, MealLunch, MealDinner, MealSnacks}

// DateLayout is the calendar-day key entries are filed under.
const DateLayout = "2006-01-02"

// LogEntry is one logged food. It is replaced wholesale on edit.
type LogEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
	Meal      string    `json:"meal"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      Unit      `json:"unit"`
	// Macros and Nutrients are totals for Quantity of Unit.
	Macros    Macros         `json:"macros"`
	Nutrients NutrientVector `json:"nutrients,omitempty"`
	// Base is the originating reference, kept so an edit can rescale
	// without inverting rounded totals. Nil for legacy entries.
	Base *FoodReference `json:"base,omitempty"`
	// Overridden is set when a user typed values over the scaled totals.
	Overridden bool `json:"overridden,omitempty"`
}

// Favorite is a saved reference the resolver checks before any upstream.
type Favorite struct {
	ID     string        `json:"id"`
	UserID string        `json:"userId"`
	Food   FoodReference `json:"food"`
}
