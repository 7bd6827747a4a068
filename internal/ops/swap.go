package ops

import (
	"strings"

	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/meal"
)

// SwapInput contains parameters for the Swap operation.
// Exactly one of Meal or MealID must be set.
type SwapInput struct {
	Meal        *meal.Meal
	MealID      string // resolved against history
	Mode        string // Healthy, Protein, Carb or Custom; default: Healthy
	Description string // Custom only
}

// Swap derives a variant meal. The source meal, stored or not, is left unchanged
// and the result is not saved.
func Swap(store *history.Store, input SwapInput) (*meal.SwapResult, error) {
	id := strings.TrimSpace(input.MealID)
	if input.Meal != nil && id != "" {
		return nil, errors.NewInvalidRequest("specify either meal or meal_id, not both")
	}
	if input.Meal == nil && id == "" {
		return nil, errors.NewInvalidRequest("must specify either meal or meal_id")
	}

	mode, err := meal.ParseSwapMode(input.Mode)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	var src meal.Meal
	if input.Meal != nil {
		src = *input.Meal
	} else {
		if store == nil {
			return nil, errors.NewNotFound(id)
		}
		m, ok := store.Get(id)
		if !ok {
			return nil, errors.NewNotFound(id)
		}
		src = m
	}

	res := meal.Swap(src, mode, input.Description, now())
	return &res, nil
}
