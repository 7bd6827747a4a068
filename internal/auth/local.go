package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/platescan/platescan/internal/db"
)

// Local provider limits.
// bcrypt only hashes the first 72 bytes, so longer passwords are refused.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
	MaxFailedAttempts = 5
	LockoutWindow     = 15 * time.Minute
)

var validate = validator.New()

// codeInternal has no dedicated message and maps to DefaultMessage.
const codeInternal = "auth/internal-error"

// LocalProvider keeps accounts in the local SQLite database.
// It is the self-hosted stand-in for a hosted identity service.
type LocalProvider struct {
	db   *sql.DB
	cost int
	now  func() time.Time

	mu      sync.Mutex
	current *User
}

// NewLocal creates a LocalProvider over an initialized account database.
func NewLocal(database *sql.DB) *LocalProvider {
	return &LocalProvider{
		db:   database,
		cost: bcrypt.DefaultCost,
		now:  time.Now,
	}
}

// SignUp creates an account and signs it in.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*User, error) {
	emailNorm, ok := NormalizeEmail(email)
	if !ok {
		return nil, Fail(CodeInvalidEmail)
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return nil, Fail(CodeWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, Fail(codeInternal)
	}

	now := p.now().Unix()
	acct := &db.Account{
		UID:          ulid.Make().String(),
		EmailRaw:     strings.TrimSpace(email),
		EmailNorm:    emailNorm,
		PasswordHash: hash,
		CreatedAt:    now,
		LastSignInAt: &now,
	}
	if err := db.InsertAccount(ctx, p.db, acct); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, Fail(CodeEmailAlreadyInUse)
		}
		return nil, Fail(codeInternal)
	}

	return p.setCurrent(acct), nil
}

// SignIn verifies credentials and signs the account in.
// After MaxFailedAttempts consecutive wrong passwords the account is locked
// until LockoutWindow has passed since the last failure, or until Unlock.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	acct, err := p.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct.Disabled {
		return nil, Fail(CodeUserDisabled)
	}
	if acct.FailedAttempts >= MaxFailedAttempts {
		if p.locked(acct) {
			return nil, Fail(CodeTooManyRequests)
		}
		if err := db.ResetFailedAttempts(ctx, p.db, acct.UID); err != nil {
			return nil, Fail(codeInternal)
		}
	}

	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		if _, recErr := db.RecordFailedAttempt(ctx, p.db, acct.UID, p.now().Unix()); recErr != nil {
			return nil, Fail(codeInternal)
		}
		return nil, Fail(CodeWrongPassword)
	}

	if err := db.RecordSignIn(ctx, p.db, acct.UID, p.now().Unix()); err != nil {
		return nil, Fail(codeInternal)
	}
	return p.setCurrent(acct), nil
}

// SetDisabled disables or re-enables the account registered under email.
func (p *LocalProvider) SetDisabled(ctx context.Context, email string, disabled bool) error {
	acct, err := p.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := db.SetDisabled(ctx, p.db, acct.UID, disabled); err != nil {
		return Fail(codeInternal)
	}
	return nil
}

// Unlock clears the failed sign-in counter of the account registered under email.
func (p *LocalProvider) Unlock(ctx context.Context, email string) error {
	acct, err := p.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := db.ResetFailedAttempts(ctx, p.db, acct.UID); err != nil {
		return Fail(codeInternal)
	}
	return nil
}

func (p *LocalProvider) lookup(ctx context.Context, email string) (*db.Account, error) {
	emailNorm, ok := NormalizeEmail(email)
	if !ok {
		return nil, Fail(CodeInvalidEmail)
	}
	acct, err := db.GetAccountByEmail(ctx, p.db, emailNorm)
	if err != nil {
		if stderrors.Is(err, db.ErrNoAccount) {
			return nil, Fail(CodeUserNotFound)
		}
		return nil, Fail(codeInternal)
	}
	return acct, nil
}

// locked reports whether the lockout window since the last failure is still open.
// Accounts without a failure timestamp are not locked.
func (p *LocalProvider) locked(acct *db.Account) bool {
	if acct.LastFailedAt == nil {
		return false
	}
	last := time.Unix(*acct.LastFailedAt, 0)
	return p.now().Sub(last) < LockoutWindow
}

// SignInWithGoogle is not available without a hosted identity service.
func (p *LocalProvider) SignInWithGoogle(ctx context.Context) (*User, error) {
	return nil, Fail(CodeOperationNotAllowed)
}

// SignOut clears the current user.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Fail(CodeSignOutFailed)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (p *LocalProvider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	u := *p.current
	return &u
}

func (p *LocalProvider) setCurrent(acct *db.Account) *User {
	email := acct.EmailRaw
	u := &User{
		UID:         acct.UID,
		Email:       &email,
		DisplayName: acct.DisplayName,
		PhotoURL:    acct.PhotoURL,
	}
	p.mu.Lock()
	p.current = u
	p.mu.Unlock()

	out := *u
	return &out
}

// NormalizeEmail trims and lowercases a bare address ("a@b.c", no display name).
// ok is false when the address fails the "required,email" rule.
func NormalizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", false
	}
	return strings.ToLower(email), true
}
