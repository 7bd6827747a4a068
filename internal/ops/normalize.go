package ops

import (
	"github.com/platescan/platescan/internal/meal"
)

// NormalizeInput contains parameters for the Normalize operation.
type NormalizeInput struct {
	Payload []byte // raw analysis reply; malformed input is tolerated
	Photo   string
}

// Normalize turns an analysis reply into a Meal. It never fails.
func Normalize(input NormalizeInput) meal.Meal {
	return meal.Normalize(input.Payload, input.Photo, now())
}
