package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"

	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/db"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/profile"
)

// OnboardInput contains parameters for the Onboard operation.
type OnboardInput struct {
	State  *profile.Wizard // nil starts a new wizard
	Action string
	Value  string
}

// Onboard applies one wizard action and returns the next state.
func Onboard(input OnboardInput) (*profile.Wizard, error) {
	w := profile.New()
	if input.State != nil {
		w = *input.State
	}
	if input.Action == "" {
		return &w, nil
	}

	next, err := w.Apply(profile.Action(input.Action), input.Value)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return &next, nil
}

// ProfileInput is a whole onboarding session given at once.
type ProfileInput struct {
	Goals       []string
	Preference  string
	MealsPerDay int // 0 keeps the default
	Concerns    []string
	Skip        bool
}

// BuildProfile walks the wizard through every step with the given choices
// and returns the finished state.
func BuildProfile(input ProfileInput) (*profile.Wizard, error) {
	if input.Skip {
		return Onboard(OnboardInput{Action: string(profile.ActionSkip)})
	}

	steps := make([]OnboardInput, 0, len(input.Goals)+len(input.Concerns)+6)
	for _, g := range input.Goals {
		steps = append(steps, OnboardInput{Action: string(profile.ActionToggleGoal), Value: g})
	}
	steps = append(steps, OnboardInput{Action: string(profile.ActionNext)})
	if input.Preference != "" {
		steps = append(steps, OnboardInput{Action: string(profile.ActionSetPreference), Value: input.Preference})
	}
	if input.MealsPerDay != 0 {
		steps = append(steps, OnboardInput{Action: string(profile.ActionSetMealsPerDay), Value: strconv.Itoa(input.MealsPerDay)})
	}
	steps = append(steps, OnboardInput{Action: string(profile.ActionNext)})
	for _, c := range input.Concerns {
		steps = append(steps, OnboardInput{Action: string(profile.ActionToggleConcern), Value: c})
	}
	steps = append(steps, OnboardInput{Action: string(profile.ActionFinish)})

	var state *profile.Wizard
	for _, step := range steps {
		step.State = state
		next, err := Onboard(step)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return state, nil
}

// SaveProfile stores a finished wizard's profile on the account for email.
func SaveProfile(ctx context.Context, database *sql.DB, email string, w *profile.Wizard) (*profile.Profile, error) {
	if w == nil || !w.Done {
		return nil, errors.NewInvalidRequest("onboarding is not complete")
	}
	acct, err := accountFor(ctx, database, email)
	if err != nil {
		return nil, err
	}
	if err := db.UpsertProfile(ctx, database, acct.UID, w.Profile, now().Unix()); err != nil {
		return nil, err
	}
	p := w.Profile
	return &p, nil
}

// GetProfile returns the stored onboarding profile for email.
func GetProfile(ctx context.Context, database *sql.DB, email string) (*profile.Profile, error) {
	acct, err := accountFor(ctx, database, email)
	if err != nil {
		return nil, err
	}
	p, err := db.GetProfile(ctx, database, acct.UID)
	if stderrors.Is(err, db.ErrNoProfile) {
		return nil, errors.NewProfileNotFound(acct.EmailNorm)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func accountFor(ctx context.Context, database *sql.DB, email string) (*db.Account, error) {
	if database == nil {
		return nil, errors.NewInvalidRequest("account database is not available")
	}
	norm, ok := auth.NormalizeEmail(email)
	if !ok {
		return nil, auth.Fail(auth.CodeInvalidEmail)
	}
	acct, err := db.GetAccountByEmail(ctx, database, norm)
	if stderrors.Is(err, db.ErrNoAccount) {
		return nil, auth.Fail(auth.CodeUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}
