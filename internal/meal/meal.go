package meal

import (
	"fmt"
	"math"
	"time"
)

// Macro holds the macronutrient breakdown of a food item or a whole meal.
// Carbs, Protein, Fat, Fiber and Sugar are grams; Sodium is milligrams.
type Macro struct {
	Carbs   float64 `json:"carbs" yaml:"carbs"`
	Protein float64 `json:"protein" yaml:"protein"`
	Fat     float64 `json:"fat" yaml:"fat"`
	Fiber   float64 `json:"fiber" yaml:"fiber"`
	Sugar   float64 `json:"sugar" yaml:"sugar"`
	Sodium  float64 `json:"sodium" yaml:"sodium"`
}

// FoodItem is one detected component of a Meal.
// ID is unique within its Meal only and stays stable for the Meal's lifetime.
// Calories are not cross-checked against Macros.
type FoodItem struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Quantity string  `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Calories float64 `json:"calories" yaml:"calories"`
	Macros   Macro   `json:"macros" yaml:"macros"`
	Photo    string  `json:"photo,omitempty" yaml:"photo,omitempty"`
}

// Meal is a normalized record of detected food items plus aggregate nutrition.
// TotalCalories and TotalMacros may come straight from the analysis service
// and are not required to equal the sum over Items.
type Meal struct {
	ID            string     `json:"id" yaml:"id"`
	Name          string     `json:"name,omitempty" yaml:"name,omitempty"`
	Items         []FoodItem `json:"items" yaml:"items"`
	TotalCalories float64    `json:"totalCalories" yaml:"totalCalories"`
	TotalMacros   Macro      `json:"totalMacros" yaml:"totalMacros"`
	Photo         string     `json:"photo,omitempty" yaml:"photo,omitempty"`
	Timestamp     int64      `json:"timestamp" yaml:"timestamp"` // unix milliseconds
	Note          string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// Summary is the compact form of a Meal used by list outputs.
type Summary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	ItemCount     int     `json:"item_count"`
	TotalCalories float64 `json:"total_calories"`
	Timestamp     int64   `json:"timestamp"`
}

// Clone returns a copy of m that shares no slice storage with it.
func (m Meal) Clone() Meal {
	c := m
	if m.Items != nil {
		c.Items = make([]FoodItem, len(m.Items))
		copy(c.Items, m.Items)
	}
	return c
}

// Summary returns the compact form of m, with calories rounded for display.
func (m Meal) Summary() Summary {
	return Summary{
		ID:            m.ID,
		Name:          m.Name,
		ItemCount:     len(m.Items),
		TotalCalories: Round1(m.TotalCalories),
		Timestamp:     m.Timestamp,
	}
}

// NewID builds a time-based identifier such as "meal-1700000000000".
// Two ids minted in the same millisecond with the same prefix collide.
func NewID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixMilli())
}

// Round1 rounds x to one decimal place, half away from zero.
// Stored values are never rounded; this is for presentation only.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
