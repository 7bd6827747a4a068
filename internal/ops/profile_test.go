package ops

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/db"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/profile"
)

func setupAccountDB(t *testing.T, emails ...string) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	for i, email := range emails {
		err := db.InsertAccount(context.Background(), database, &db.Account{
			UID:          "uid-" + string(rune('a'+i)),
			EmailRaw:     email,
			EmailNorm:    email,
			PasswordHash: []byte("hash"),
			CreatedAt:    1700000000,
		})
		if err != nil {
			t.Fatalf("InsertAccount() error = %v", err)
		}
	}
	return database
}

func providerCode(err error) string {
	e := errors.As(err)
	code, _ := e.Details["provider_code"].(string)
	return code
}

func TestOnboard_NilStateStartsWizard(t *testing.T) {
	w, err := Onboard(OnboardInput{})
	if err != nil {
		t.Fatalf("Onboard() error = %v", err)
	}
	if w.Step != profile.StepGoals || w.Profile.MealsPerDay != profile.DefaultMealsPerDay {
		t.Errorf("Onboard() = %+v, want fresh wizard", w)
	}
}

func TestOnboard_AppliesAction(t *testing.T) {
	w, err := Onboard(OnboardInput{Action: "toggle_goal", Value: "Build muscle"})
	if err != nil {
		t.Fatalf("Onboard() error = %v", err)
	}
	w, err = Onboard(OnboardInput{State: w, Action: "toggle_goal", Value: "weight_loss"})
	if err != nil {
		t.Fatalf("Onboard() error = %v", err)
	}

	want := []string{"weight_loss", "build_muscle"}
	if !reflect.DeepEqual(w.Profile.Goals, want) {
		t.Errorf("Goals = %v, want %v", w.Profile.Goals, want)
	}
}

func TestOnboard_InvalidAction(t *testing.T) {
	tests := []struct {
		name  string
		input OnboardInput
	}{
		{"unknown action", OnboardInput{Action: "jump"}},
		{"concern on step 1", OnboardInput{Action: "toggle_concern", Value: "Low oil"}},
		{"back on step 1", OnboardInput{Action: "back"}},
		{"finish on step 1", OnboardInput{Action: "finish"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Onboard(tt.input)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("Onboard() error = %v, want %s", err, errors.ErrInvalidRequest)
			}
		})
	}
}

func TestBuildProfile(t *testing.T) {
	w, err := BuildProfile(ProfileInput{
		Goals:       []string{"weight_loss", "General health"},
		Preference:  "vegan",
		MealsPerDay: 4,
		Concerns:    []string{"Low oil", "gluten-free"},
	})
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}

	if !w.Done || w.Step != profile.StepConcerns {
		t.Errorf("Done = %v, Step = %d, want done on step 3", w.Done, w.Step)
	}
	want := profile.Profile{
		Goals:       []string{"general_health", "weight_loss"},
		Preference:  "Vegan",
		MealsPerDay: 4,
		Concerns:    []string{"Gluten-free", "Low oil"},
	}
	if !reflect.DeepEqual(w.Profile, want) {
		t.Errorf("Profile = %+v, want %+v", w.Profile, want)
	}
}

func TestBuildProfile_Defaults(t *testing.T) {
	w, err := BuildProfile(ProfileInput{})
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if w.Profile.MealsPerDay != profile.DefaultMealsPerDay {
		t.Errorf("MealsPerDay = %d, want %d", w.Profile.MealsPerDay, profile.DefaultMealsPerDay)
	}
	if len(w.Profile.Goals) != 0 || len(w.Profile.Concerns) != 0 || w.Profile.Preference != "" {
		t.Errorf("Profile = %+v, want empty selections", w.Profile)
	}
}

func TestBuildProfile_Skip(t *testing.T) {
	w, err := BuildProfile(ProfileInput{Skip: true, Goals: []string{"weight_loss"}})
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if !w.Done || !w.Profile.Skipped {
		t.Errorf("Done = %v, Skipped = %v, want both true", w.Done, w.Profile.Skipped)
	}
	if len(w.Profile.Goals) != 0 {
		t.Errorf("Goals = %v, want none on skip", w.Profile.Goals)
	}
}

func TestBuildProfile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input ProfileInput
	}{
		{"goal", ProfileInput{Goals: []string{"get taller"}}},
		{"preference", ProfileInput{Preference: "Pescatarian"}},
		{"meals", ProfileInput{MealsPerDay: 5}},
		{"concern", ProfileInput{Concerns: []string{"No sugar"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildProfile(tt.input)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("BuildProfile() error = %v, want %s", err, errors.ErrInvalidRequest)
			}
		})
	}
}

func TestSaveAndGetProfile(t *testing.T) {
	fixedClock(t, time.Unix(1700000100, 0), 0)
	database := setupAccountDB(t, "asha@example.com")
	ctx := context.Background()

	w, err := BuildProfile(ProfileInput{Goals: []string{"build_muscle"}, Preference: "Eggetarian", MealsPerDay: 2})
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}

	saved, err := SaveProfile(ctx, database, "  Asha@Example.com ", w)
	if err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	got, err := GetProfile(ctx, database, "asha@example.com")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !reflect.DeepEqual(got, saved) {
		t.Errorf("GetProfile() = %+v, want %+v", got, saved)
	}
}

func TestSaveProfile_ReplacesPrevious(t *testing.T) {
	database := setupAccountDB(t, "asha@example.com")
	ctx := context.Background()

	first, _ := BuildProfile(ProfileInput{Goals: []string{"build_muscle"}})
	if _, err := SaveProfile(ctx, database, "asha@example.com", first); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	skipped, _ := BuildProfile(ProfileInput{Skip: true})
	if _, err := SaveProfile(ctx, database, "asha@example.com", skipped); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	got, err := GetProfile(ctx, database, "asha@example.com")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !got.Skipped || len(got.Goals) != 0 {
		t.Errorf("GetProfile() = %+v, want the skipped profile", got)
	}
}

func TestSaveProfile_Errors(t *testing.T) {
	database := setupAccountDB(t, "asha@example.com")
	ctx := context.Background()
	done, _ := BuildProfile(ProfileInput{})
	open, _ := Onboard(OnboardInput{})

	if _, err := SaveProfile(ctx, database, "asha@example.com", open); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unfinished wizard error = %v, want %s", err, errors.ErrInvalidRequest)
	}
	if _, err := SaveProfile(ctx, database, "asha@example.com", nil); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("nil wizard error = %v, want %s", err, errors.ErrInvalidRequest)
	}
	if _, err := SaveProfile(ctx, database, "not-an-email", done); providerCode(err) != auth.CodeInvalidEmail {
		t.Errorf("bad email error = %v, want %s", err, auth.CodeInvalidEmail)
	}
	if _, err := SaveProfile(ctx, database, "nobody@example.com", done); providerCode(err) != auth.CodeUserNotFound {
		t.Errorf("unknown account error = %v, want %s", err, auth.CodeUserNotFound)
	}
	if _, err := SaveProfile(ctx, nil, "asha@example.com", done); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("nil database error = %v, want %s", err, errors.ErrInvalidRequest)
	}
}

func TestGetProfile_NotOnboarded(t *testing.T) {
	database := setupAccountDB(t, "asha@example.com")

	_, err := GetProfile(context.Background(), database, "asha@example.com")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetProfile() error = %v, want %s", err, errors.ErrNotFound)
	}
}
