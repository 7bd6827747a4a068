// Package auth defines the identity provider contract and the fixed
// provider-code to message table shown to users.
package auth

import (
	"context"

	"github.com/platescan/platescan/internal/errors"
)

// Provider error codes.
const (
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeWeakPassword         = "auth/weak-password"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeUserDisabled         = "auth/user-disabled"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeSignOutFailed        = "auth/sign-out-failed"
)

// DefaultMessage is shown for codes without a dedicated message.
const DefaultMessage = "An error occurred. Please try again."

var messages = map[string]string{
	CodeEmailAlreadyInUse:    "This email is already registered. Please try logging in instead.",
	CodeWeakPassword:         "Password should be at least 6 characters long.",
	CodeInvalidEmail:         "Please enter a valid email address.",
	CodeUserNotFound:         "No account found with this email address.",
	CodeWrongPassword:        "Incorrect password. Please try again.",
	CodeTooManyRequests:      "Too many failed attempts. Please try again later.",
	CodeNetworkRequestFailed: "Network error. Please check your internet connection.",
	CodeUserDisabled:         "This account has been disabled.",
	CodeSignOutFailed:        "Failed to sign out",
}

// User is the normalized identity record returned by every provider.
type User struct {
	UID         string  `json:"uid" yaml:"uid"`
	Email       *string `json:"email" yaml:"email"`
	DisplayName *string `json:"displayName" yaml:"displayName"`
	PhotoURL    *string `json:"photoURL" yaml:"photoURL"`
}

// Provider is an external identity service.
// Failures are *errors.Error values with code AUTH_FAILED whose Message is
// the human-readable text for the provider code.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignInWithGoogle(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
	CurrentUser() *User
}

// Message returns the human-readable text for a provider error code.
func Message(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return DefaultMessage
}

// Fail builds the error a provider returns for code.
func Fail(code string) *errors.Error {
	return errors.NewAuth(code, Message(code))
}
