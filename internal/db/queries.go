package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/platescan/platescan/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.Error{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// ErrNoAccount is returned when no account matches a lookup.
var ErrNoAccount = stderrors.New("account not found")

// Account is one row of the users table.
type Account struct {
	UID            string
	EmailRaw       string
	EmailNorm      string
	PasswordHash   []byte
	DisplayName    *string
	PhotoURL       *string
	Disabled       bool
	FailedAttempts int
	LastFailedAt   *int64
	CreatedAt      int64
	LastSignInAt   *int64
}

// InsertAccount stores a new account.
func InsertAccount(ctx context.Context, db *sql.DB, a *Account) error {
	query := `
		INSERT INTO users (
			uid, email_raw, email_norm, password_hash, display_name, photo_url,
			disabled, failed_attempts, created_at, last_sign_in_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		a.UID, a.EmailRaw, a.EmailNorm, a.PasswordHash,
		toNullString(a.DisplayName), toNullString(a.PhotoURL),
		boolToInt(a.Disabled), a.FailedAttempts, a.CreatedAt, toNullInt64(a.LastSignInAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetAccountByEmail retrieves an account by normalized email.
func GetAccountByEmail(ctx context.Context, db *sql.DB, emailNorm string) (*Account, error) {
	query := `
		SELECT uid, email_raw, email_norm, password_hash, display_name, photo_url,
			disabled, failed_attempts, last_failed_at, created_at, last_sign_in_at
		FROM users
		WHERE email_norm = ?
	`
	row := db.QueryRowContext(ctx, query, emailNorm)

	var a Account
	var displayName, photoURL sql.NullString
	var disabled int
	var lastFailed, lastSignIn sql.NullInt64
	err := row.Scan(&a.UID, &a.EmailRaw, &a.EmailNorm, &a.PasswordHash, &displayName, &photoURL,
		&disabled, &a.FailedAttempts, &lastFailed, &a.CreatedAt, &lastSignIn)
	if err == sql.ErrNoRows {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	a.DisplayName = fromNullString(displayName)
	a.PhotoURL = fromNullString(photoURL)
	a.Disabled = disabled != 0
	a.LastFailedAt = fromNullInt64(lastFailed)
	a.LastSignInAt = fromNullInt64(lastSignIn)
	return &a, nil
}

// RecordFailedAttempt increments the failed sign-in counter, stamps the failure
// time and returns the new count.
func RecordFailedAttempt(ctx context.Context, db *sql.DB, uid string, at int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`UPDATE users SET failed_attempts = failed_attempts + 1, last_failed_at = ? WHERE uid = ? RETURNING failed_attempts`,
		at, uid,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, ErrNoAccount
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// RecordSignIn resets the failed counter and stamps the sign-in time.
func RecordSignIn(ctx context.Context, db *sql.DB, uid string, at int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, last_failed_at = NULL, last_sign_in_at = ? WHERE uid = ?`, at, uid)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireOneRow(res)
}

// ResetFailedAttempts clears the failed sign-in counter without signing in.
func ResetFailedAttempts(ctx context.Context, db *sql.DB, uid string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, last_failed_at = NULL WHERE uid = ?`, uid)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireOneRow(res)
}

// SetDisabled enables or disables an account.
func SetDisabled(ctx context.Context, db *sql.DB, uid string, disabled bool) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET disabled = ? WHERE uid = ?`, boolToInt(disabled), uid)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return ErrNoAccount
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
