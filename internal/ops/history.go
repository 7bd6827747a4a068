package ops

import (
	"strings"

	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/meal"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Meal *meal.Meal
}

// Save stores a copy of the meal under a fresh saved-<unix ms> id.
func Save(store *history.Store, input SaveInput) (*meal.Meal, error) {
	if input.Meal == nil {
		return nil, errors.NewInvalidRequest("meal is required")
	}
	saved := store.Save(*input.Meal, now())
	return &saved, nil
}

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []meal.Summary `json:"items" yaml:"items"`
	Pagination Pagination     `json:"pagination" yaml:"pagination"`
	Sort       string         `json:"sort" yaml:"sort"`
}

// List returns meal summaries, most recently saved first.
func List(store *history.Store, input ListInput) *ListOutput {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	meals := store.List()
	total := len(meals)

	items := []meal.Summary{}
	for i := offset; i < total && len(items) < limit; i++ {
		items = append(items, meals[i].Summary())
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "saved_desc",
	}
}

// GetInput contains parameters for the Get operation.
type GetInput struct {
	ID string
}

// Get returns a saved meal by id.
func Get(store *history.Store, input GetInput) (*meal.Meal, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	m, ok := store.Get(id)
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return &m, nil
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Cleared int `json:"cleared" yaml:"cleared"`
}

// Clear removes every saved meal.
func Clear(store *history.Store) *ClearOutput {
	return &ClearOutput{Cleared: store.Clear()}
}
