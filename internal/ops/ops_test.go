package ops

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/platescan/platescan/internal/analyze"
	"github.com/platescan/platescan/internal/meal"
)

// fixedClock pins now to a known instant and advances it by step on every call.
func fixedClock(t *testing.T, start time.Time, step time.Duration) {
	t.Helper()
	cur := start
	prev := now
	now = func() time.Time {
		v := cur
		cur = cur.Add(step)
		return v
	}
	t.Cleanup(func() { now = prev })
}

type fakeAnalyzer struct {
	body     string
	err      error
	calls    int
	filename string
	image    string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image io.Reader, filename string) (*analyze.Result, error) {
	f.calls++
	f.filename = filename
	data, _ := io.ReadAll(image)
	f.image = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &analyze.Result{RequestID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", Body: []byte(f.body)}, nil
}

func sampleMeal(id string) *meal.Meal {
	return &meal.Meal{
		ID:   id,
		Name: "Analyzed Meal",
		Items: []meal.FoodItem{
			{ID: "it-0", Name: "Rice", Calories: 200},
			{ID: "it-1", Name: "Dal", Calories: 150},
		},
		TotalCalories: 350,
		TotalMacros:   meal.Macro{Carbs: 60, Protein: 12, Fat: 5},
		Timestamp:     1700000000000,
	}
}
