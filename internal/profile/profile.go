// Package profile implements the three-step onboarding wizard that records a
// user's goals, dietary preference, meals per day and food concerns.
//
// A Wizard is a value: Apply returns the next state and never modifies the
// receiver, so callers (CLI, HTTP) can round-trip it as JSON between steps.
package profile

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Wizard steps.
const (
	StepGoals       = 1
	StepPreferences = 2
	StepConcerns    = 3
)

// DefaultMealsPerDay is preselected on step 2.
const DefaultMealsPerDay = 3

// Option is a selectable choice with a stable key and a display label.
type Option struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

// Goals are offered on step 1 (multi-select).
var Goals = []Option{
	{Key: "weight_loss", Label: "Lose weight"},
	{Key: "build_muscle", Label: "Build muscle"},
	{Key: "manage_diabetes", Label: "Manage diabetes"},
	{Key: "general_health", Label: "General health"},
}

// Preferences are offered on step 2 (single-select).
var Preferences = []string{"Veg", "Non-veg", "Eggetarian", "Vegan"}

// MealsPerDayOptions are offered on step 2 (single-select).
var MealsPerDayOptions = []int{2, 3, 4}

// Concerns are offered on step 3 (multi-select).
var Concerns = []string{"Low oil", "More protein", "Low carb", "Low sodium", "No dairy", "Gluten-free"}

// Action is one user interaction with the wizard.
type Action string

const (
	ActionToggleGoal     Action = "toggle_goal"
	ActionSetPreference  Action = "set_preference"
	ActionSetMealsPerDay Action = "set_meals_per_day"
	ActionToggleConcern  Action = "toggle_concern"
	ActionNext           Action = "next"
	ActionBack           Action = "back"
	ActionSkip           Action = "skip"
	ActionFinish         Action = "finish"
)

// Profile is what the wizard collects.
// Multi-select lists are most recent selection first.
type Profile struct {
	Goals       []string `json:"goals" yaml:"goals"`
	Preference  string   `json:"preference,omitempty" yaml:"preference,omitempty"`
	MealsPerDay int      `json:"mealsPerDay" yaml:"mealsPerDay"`
	Concerns    []string `json:"concerns" yaml:"concerns"`
	Skipped     bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Wizard is the onboarding state. Done is set by finish or skip; a done
// wizard accepts no further actions.
type Wizard struct {
	Step    int     `json:"step" yaml:"step"`
	Profile Profile `json:"profile" yaml:"profile"`
	Done    bool    `json:"done" yaml:"done"`
}

// New returns a wizard on step 1 with the default meals per day.
func New() Wizard {
	return Wizard{
		Step: StepGoals,
		Profile: Profile{
			Goals:       []string{},
			MealsPerDay: DefaultMealsPerDay,
			Concerns:    []string{},
		},
	}
}

// Apply returns the wizard after action. value carries the option for the
// toggle and set actions and is ignored otherwise.
// Selections are only accepted on the step that shows them.
func (w Wizard) Apply(action Action, value string) (Wizard, error) {
	if w.Done {
		return w, fmt.Errorf("onboarding is already complete")
	}
	if w.Step < StepGoals || w.Step > StepConcerns {
		return w, fmt.Errorf("invalid step %d", w.Step)
	}

	next := w.clone()
	switch action {
	case ActionToggleGoal:
		if err := w.requireStep(StepGoals, "goals"); err != nil {
			return w, err
		}
		key, ok := matchGoal(value)
		if !ok {
			return w, fmt.Errorf("unknown goal %q", value)
		}
		next.Profile.Goals = toggle(next.Profile.Goals, key)

	case ActionSetPreference:
		if err := w.requireStep(StepPreferences, "preference"); err != nil {
			return w, err
		}
		p, ok := match(Preferences, value)
		if !ok {
			return w, fmt.Errorf("unknown preference %q (want one of: %s)", value, strings.Join(Preferences, ", "))
		}
		next.Profile.Preference = p

	case ActionSetMealsPerDay:
		if err := w.requireStep(StepPreferences, "meals per day"); err != nil {
			return w, err
		}
		n, err := cast.ToIntE(strings.TrimSpace(value))
		if err != nil || !validMealsPerDay(n) {
			return w, fmt.Errorf("meals per day must be 2, 3 or 4, got %q", value)
		}
		next.Profile.MealsPerDay = n

	case ActionToggleConcern:
		if err := w.requireStep(StepConcerns, "concerns"); err != nil {
			return w, err
		}
		c, ok := match(Concerns, value)
		if !ok {
			return w, fmt.Errorf("unknown concern %q", value)
		}
		next.Profile.Concerns = toggle(next.Profile.Concerns, c)

	case ActionNext:
		if w.Step == StepConcerns {
			return w, fmt.Errorf("already on the last step; use finish")
		}
		next.Step++

	case ActionBack:
		if w.Step == StepGoals {
			return w, fmt.Errorf("already on the first step")
		}
		next.Step--

	case ActionFinish:
		if w.Step != StepConcerns {
			return w, fmt.Errorf("finish is only available on step %d", StepConcerns)
		}
		next.Done = true

	case ActionSkip:
		next.Done = true
		next.Profile.Skipped = true

	default:
		return w, fmt.Errorf("unknown action %q", action)
	}
	return next, nil
}

func (w Wizard) requireStep(step int, what string) error {
	if w.Step != step {
		return fmt.Errorf("%s are chosen on step %d, wizard is on step %d", what, step, w.Step)
	}
	return nil
}

func (w Wizard) clone() Wizard {
	c := w
	c.Profile.Goals = append([]string{}, w.Profile.Goals...)
	c.Profile.Concerns = append([]string{}, w.Profile.Concerns...)
	return c
}

// toggle removes key when present, otherwise prepends it.
func toggle(list []string, key string) []string {
	for _, k := range list {
		if k == key {
			out := make([]string, 0, len(list)-1)
			for _, k := range list {
				if k != key {
					out = append(out, k)
				}
			}
			return out
		}
	}
	return append([]string{key}, list...)
}

// matchGoal accepts a goal key or label, case-insensitively, and returns the key.
func matchGoal(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, g := range Goals {
		if strings.EqualFold(s, g.Key) || strings.EqualFold(s, g.Label) {
			return g.Key, true
		}
	}
	return "", false
}

// GoalLabel returns the display label for a goal key, or the key itself when unknown.
func GoalLabel(key string) string {
	for _, g := range Goals {
		if g.Key == key {
			return g.Label
		}
	}
	return key
}

// match returns the canonical spelling of s from options.
func match(options []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return o, true
		}
	}
	return "", false
}

func validMealsPerDay(n int) bool {
	for _, m := range MealsPerDayOptions {
		if n == m {
			return true
		}
	}
	return false
}
