package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/profile"
)

// ErrNoProfile is returned when an account has not completed onboarding.
var ErrNoProfile = stderrors.New("profile not found")

// UpsertProfile stores the onboarding profile of an account, replacing any previous one.
func UpsertProfile(ctx context.Context, db *sql.DB, uid string, p profile.Profile, at int64) error {
	goals, err := json.Marshal(nonNil(p.Goals))
	if err != nil {
		return errors.NewInternal(err)
	}
	concerns, err := json.Marshal(nonNil(p.Concerns))
	if err != nil {
		return errors.NewInternal(err)
	}

	var preference *string
	if p.Preference != "" {
		preference = &p.Preference
	}

	query := `
		INSERT INTO profiles (uid, goals, preference, meals_per_day, concerns, skipped, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			goals = excluded.goals,
			preference = excluded.preference,
			meals_per_day = excluded.meals_per_day,
			concerns = excluded.concerns,
			skipped = excluded.skipped,
			updated_at = excluded.updated_at
	`
	_, err = db.ExecContext(ctx, query,
		uid, string(goals), toNullString(preference), p.MealsPerDay, string(concerns),
		boolToInt(p.Skipped), at,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetProfile retrieves the onboarding profile of an account.
func GetProfile(ctx context.Context, db *sql.DB, uid string) (*profile.Profile, error) {
	row := db.QueryRowContext(ctx,
		`SELECT goals, preference, meals_per_day, concerns, skipped FROM profiles WHERE uid = ?`, uid)

	var p profile.Profile
	var goals, concerns string
	var preference sql.NullString
	var skipped int
	err := row.Scan(&goals, &preference, &p.MealsPerDay, &concerns, &skipped)
	if err == sql.ErrNoRows {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := json.Unmarshal([]byte(goals), &p.Goals); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := json.Unmarshal([]byte(concerns), &p.Concerns); err != nil {
		return nil, errors.NewInternal(err)
	}
	p.Preference = preference.String
	p.Skipped = skipped != 0
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
