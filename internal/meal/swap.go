package meal

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SwapMode selects the heuristic used to derive an alternative meal.
type SwapMode string

const (
	SwapHealthy SwapMode = "Healthy"
	SwapProtein SwapMode = "Protein"
	SwapCarb    SwapMode = "Carb"
	SwapCustom  SwapMode = "Custom"
)

// Swap floors. Items never drop below MinItemCalories and totals never below MinTotalCalories.
const (
	MinItemCalories  = 40
	MinTotalCalories = 1
	SwapIDTag        = "swap"
)

// swapRule holds the calorie multipliers and display label of one mode.
// scaleItems is false for modes that only touch the aggregate.
type swapRule struct {
	itemFactor  float64
	totalFactor float64
	scaleItems  bool
	label       string
}

var swapRules = map[SwapMode]swapRule{
	SwapProtein: {itemFactor: 0.95, totalFactor: 0.95, scaleItems: true, label: "Swap for Protein"},
	SwapCarb:    {itemFactor: 0.80, totalFactor: 0.82, scaleItems: true, label: "Lower Carbs"},
	SwapHealthy: {itemFactor: 0.90, totalFactor: 0.90, scaleItems: true, label: "Healthy Swap"},
	SwapCustom:  {totalFactor: 0.92, label: "Custom Swap"},
}

// SwapModes lists the accepted modes in display order.
var SwapModes = []SwapMode{SwapHealthy, SwapProtein, SwapCarb, SwapCustom}

// ParseSwapMode resolves a mode name case-insensitively. Empty means Healthy.
func ParseSwapMode(s string) (SwapMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SwapHealthy, nil
	}
	for _, m := range SwapModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown swap mode %q (want one of: Healthy, Protein, Carb, Custom)", s)
}

// Label returns the display label of the mode.
func (m SwapMode) Label() string {
	return ruleFor(m).label
}

// ruleFor returns the rule for m, treating unknown modes as Healthy.
func ruleFor(m SwapMode) swapRule {
	if r, ok := swapRules[m]; ok {
		return r
	}
	return swapRules[SwapHealthy]
}

// SwapResult is a derived meal plus its display metadata.
// Description is the free text supplied with a Custom swap; it has no effect
// on the numbers.
type SwapResult struct {
	Meal        Meal     `json:"meal" yaml:"meal"`
	Mode        SwapMode `json:"mode" yaml:"mode"`
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Swap derives a hypothetical variant of src without calling any service.
// Only calories change: item macros and total macros are copied as-is.
// src is not modified.
func Swap(src Meal, mode SwapMode, description string, now time.Time) SwapResult {
	rule := ruleFor(mode)
	if _, ok := swapRules[mode]; !ok {
		mode = SwapHealthy
	}

	out := src.Clone()
	out.ID = NewID(SwapIDTag, now)
	out.Name = fmt.Sprintf("%s (%s)", src.Name, mode)

	if rule.scaleItems {
		for i := range out.Items {
			out.Items[i].Calories = math.Max(MinItemCalories, math.Round(out.Items[i].Calories*rule.itemFactor))
		}
	}
	out.TotalCalories = math.Max(MinTotalCalories, math.Round(src.TotalCalories*rule.totalFactor))

	res := SwapResult{
		Meal:  out,
		Mode:  mode,
		Label: mode.Label(),
	}
	if mode == SwapCustom {
		res.Description = description
	}
	return res
}
