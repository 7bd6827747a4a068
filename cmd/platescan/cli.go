package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/platescan/platescan/internal/analyze"
	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/config"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/meal"
	"github.com/platescan/platescan/internal/ops"
	"github.com/platescan/platescan/internal/profile"
	"github.com/platescan/platescan/internal/web"
)

// maxStdinBytes bounds payloads piped to normalize and swap.
const maxStdinBytes = 4 << 20

// Output formats accepted by --format.
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// newCLIApp creates the CLI application with all commands.
// db may be nil for help/version runs.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "platescan",
		Usage:   "Meal photo analysis",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatJSON, Usage: "Output format: json|yaml|text"},
		},
		Before: func(c *cli.Context) error {
			switch c.String("format") {
			case formatJSON, formatYAML, formatText:
				return nil
			}
			return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want json, yaml or text)", c.String("format"))))
		},
		Commands: []*cli.Command{
			analyzeCmd(cfg),
			normalizeCmd(),
			swapCmd(),
			signUpCmd(db),
			signInCmd(db),
			onboardCmd(db),
			profileCmd(db),
			accountCmd(db),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// analyzeCmd creates the analyze command.
func analyzeCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Upload a meal photo to the analysis service",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Analysis endpoint (overrides analyze_url)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Request timeout (overrides analyze_timeout_seconds)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("image path is required"))
			}
			path := c.Args().First()

			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				return outputError(errors.NewInvalidRequest("cannot read image: " + path))
			}
			if cfg.MaxUploadBytes > 0 && info.Size() > cfg.MaxUploadBytes {
				return outputError(errors.NewPayloadTooLarge(cfg.MaxUploadBytes))
			}

			f, err := os.Open(path)
			if err != nil {
				return outputError(errors.NewInvalidRequest("cannot read image: " + path))
			}
			defer f.Close()

			url := cfg.AnalyzeURL
			if c.IsSet("url") {
				url = c.String("url")
			}
			timeout := cfg.AnalyzeTimeout()
			if c.IsSet("timeout") {
				timeout = c.Duration("timeout")
				if timeout <= 0 {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("timeout must be positive, got %s", timeout)))
				}
			}

			result, err := ops.Analyze(c.Context, analyze.New(url, timeout), nil, ops.AnalyzeInput{
				Image:    f,
				Filename: filepath.Base(path),
				Photo:    path,
			})
			if err != nil {
				return outputError(err)
			}

			return output(c, result)
		},
	}
}

// normalizeCmd creates the normalize command.
func normalizeCmd() *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Convert an analysis reply into a meal (reads the reply from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "photo", Usage: "Photo reference stored on the meal"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData(c.App.Reader) {
				return outputError(errors.NewInvalidRequest("analysis reply must be piped via stdin"))
			}
			payload, err := readStdin(c.App.Reader, maxStdinBytes)
			if err != nil {
				return outputError(err)
			}

			return output(c, ops.Normalize(ops.NormalizeInput{
				Payload: payload,
				Photo:   c.String("photo"),
			}))
		},
	}
}

// swapCmd creates the swap command.
func swapCmd() *cli.Command {
	return &cli.Command{
		Name:  "swap",
		Usage: "Derive a swap variant of a meal (reads meal JSON from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(meal.SwapHealthy), Usage: "Swap mode: Healthy|Protein|Carb|Custom"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Free-text note for Custom swaps"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData(c.App.Reader) {
				return outputError(errors.NewInvalidRequest("meal JSON must be piped via stdin"))
			}
			data, err := readStdin(c.App.Reader, maxStdinBytes)
			if err != nil {
				return outputError(err)
			}

			var m meal.Meal
			if err := json.Unmarshal(data, &m); err != nil {
				return outputError(errors.NewInvalidRequest("invalid meal JSON: " + err.Error()))
			}

			result, err := ops.Swap(nil, ops.SwapInput{
				Meal:        &m,
				Mode:        c.String("mode"),
				Description: c.String("description"),
			})
			if err != nil {
				return outputError(err)
			}

			return output(c, result)
		},
	}
}

// signUpCmd creates the signup command.
func signUpCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create a local account (reads the password from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"},
		},
		Action: func(c *cli.Context) error {
			return credentialsAction(c, db, true)
		},
	}
}

// signInCmd creates the signin command.
func signInCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in to a local account (reads the password from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"},
		},
		Action: func(c *cli.Context) error {
			return credentialsAction(c, db, false)
		},
	}
}

func credentialsAction(c *cli.Context, db *sql.DB, signUp bool) error {
	if db == nil {
		return outputError(errors.NewInvalidRequest("account database is not available"))
	}
	if !stdinHasData(c.App.Reader) {
		return outputError(errors.NewInvalidRequest("password must be piped via stdin"))
	}
	data, err := readStdin(c.App.Reader, 1024)
	if err != nil {
		return outputError(err)
	}
	password := strings.TrimRight(string(data), "\r\n")

	provider := auth.NewLocal(db)
	var user *auth.User
	if signUp {
		user, err = provider.SignUp(c.Context, c.String("email"), password)
	} else {
		user, err = provider.SignIn(c.Context, c.String("email"), password)
	}
	if err != nil {
		return outputError(err)
	}

	return output(c, user)
}

// onboardCmd creates the onboard command.
func onboardCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "onboard",
		Usage: "Run the onboarding wizard with the given choices",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "goal", Aliases: []string{"g"}, Usage: "Goal key or label (repeatable)"},
			&cli.StringFlag{Name: "preference", Usage: "Diet preference: Veg|Non-veg|Eggetarian|Vegan"},
			&cli.IntFlag{Name: "meals", Value: profile.DefaultMealsPerDay, Usage: "Meals per day: 2|3|4"},
			&cli.StringSliceFlag{Name: "concern", Aliases: []string{"c"}, Usage: "Food concern (repeatable)"},
			&cli.BoolFlag{Name: "skip", Usage: "Skip onboarding"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Store the profile on this account"},
		},
		Action: func(c *cli.Context) error {
			w, err := ops.BuildProfile(ops.ProfileInput{
				Goals:       c.StringSlice("goal"),
				Preference:  c.String("preference"),
				MealsPerDay: c.Int("meals"),
				Concerns:    c.StringSlice("concern"),
				Skip:        c.Bool("skip"),
			})
			if err != nil {
				return outputError(err)
			}

			if !c.IsSet("email") {
				return output(c, &w.Profile)
			}
			p, err := ops.SaveProfile(c.Context, db, c.String("email"), w)
			if err != nil {
				return outputError(err)
			}
			return output(c, p)
		},
	}
}

// profileCmd creates the profile command.
func profileCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show the onboarding profile stored on an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"},
		},
		Action: func(c *cli.Context) error {
			p, err := ops.GetProfile(c.Context, db, c.String("email"))
			if err != nil {
				return outputError(err)
			}
			return output(c, p)
		},
	}
}

// accountCmd creates the account command group.
func accountCmd(db *sql.DB) *cli.Command {
	emailFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"}
	}
	status := func(c *cli.Context, state string) error {
		return output(c, map[string]string{"email": c.String("email"), "status": state})
	}

	return &cli.Command{
		Name:  "account",
		Usage: "Administer local accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "disable",
				Usage: "Disable an account; sign-in fails with auth/user-disabled",
				Flags: []cli.Flag{emailFlag()},
				Action: func(c *cli.Context) error {
					if err := accountAdmin(c, db, func(p *auth.LocalProvider, email string) error {
						return p.SetDisabled(c.Context, email, true)
					}); err != nil {
						return err
					}
					return status(c, "disabled")
				},
			},
			{
				Name:  "enable",
				Usage: "Re-enable a disabled account",
				Flags: []cli.Flag{emailFlag()},
				Action: func(c *cli.Context) error {
					if err := accountAdmin(c, db, func(p *auth.LocalProvider, email string) error {
						return p.SetDisabled(c.Context, email, false)
					}); err != nil {
						return err
					}
					return status(c, "enabled")
				},
			},
			{
				Name:  "unlock",
				Usage: "Clear failed sign-in attempts",
				Flags: []cli.Flag{emailFlag()},
				Action: func(c *cli.Context) error {
					if err := accountAdmin(c, db, func(p *auth.LocalProvider, email string) error {
						return p.Unlock(c.Context, email)
					}); err != nil {
						return err
					}
					return status(c, "unlocked")
				},
			},
		},
	}
}

func accountAdmin(c *cli.Context, db *sql.DB, fn func(p *auth.LocalProvider, email string) error) error {
	if db == nil {
		return outputError(errors.NewInvalidRequest("account database is not available"))
	}
	if err := fn(auth.NewLocal(db), c.String("email")); err != nil {
		return outputError(err)
	}
	return nil
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the meal pages and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: cfg.WebBind, Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: cfg.WebPort, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			deps := web.Deps{
				Analyzer: analyze.New(cfg.AnalyzeURL, cfg.AnalyzeTimeout()),
				History:  history.New(),
			}
			if db != nil {
				deps.Auth = auth.NewLocal(db)
			}

			srv := web.NewServer(deps, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// output writes v to the app writer in the format selected by --format.
func output(c *cli.Context, v any) error {
	w := c.App.Writer
	switch c.String("format") {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		if text, ok := renderText(v); ok {
			_, err := fmt.Fprintln(w, text)
			return err
		}
	}
	return outputJSON(w, v)
}

// outputJSON marshals result as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	e := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
}

// stdinHasData returns true if r has piped data (not a terminal).
// Readers that are not files are assumed to carry data.
func stdinHasData(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from r.
func readStdin(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewPayloadTooLarge(limit)
	}
	return data, nil
}
