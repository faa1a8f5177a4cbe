package expense

import "time"

// BuilderExpense tracks one construction material's producer price, unique
// per (date, material_name).
type BuilderExpense struct {
	ID            string    `json:"id" db:"id"`
	Date          time.Time `json:"date" db:"date"`
	MaterialName  string    `json:"material_name" db:"material_name"`
	CurrentPrice  float64   `json:"current_price" db:"current_price"`
	StartPrice    float64   `json:"start_price" db:"start_price"`
	PercentChange float64   `json:"percent_change" db:"percent_change"`
	TotalChange   float64   `json:"total_change" db:"total_change"`
	Status        string    `json:"status" db:"status"`
}

// HouseholdExpense tracks one consumer price item, unique per
// (date, item_name).
type HouseholdExpense struct {
	ID            string    `json:"id" db:"id"`
	Date          time.Time `json:"date" db:"date"`
	Category      string    `json:"category" db:"category"`
	ItemName      string    `json:"item_name" db:"item_name"`
	CurrentPrice  float64   `json:"current_price" db:"current_price"`
	StartPrice    float64   `json:"start_price" db:"start_price"`
	PercentChange float64   `json:"percent_change" db:"percent_change"`
}

// Material is a builder cost series.
type Material struct {
	ID     string
	Name   string
	Series string
	Unit   string
}

// HouseholdItem is a consumer price series within a spending category.
type HouseholdItem struct {
	Category string
	Name     string
	Series   string
}
