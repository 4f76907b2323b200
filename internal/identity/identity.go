// Package identity defines the identity provider capability the core
// consumes: credential verification, principal lifecycle notification and
// profile updates. The core never talks to a concrete provider directly;
// implementations live below this package (local) or outside the repo.
package identity

import (
	"context"
	"errors"
	"fmt"
)

// Principal is an identity-provider account. It exists independently of any
// application entity; the session manager bridges it to an Account.
type Principal struct {
	UID      string
	Email    string
	Name     string
	Verified bool
}

// ProfileFields carries the mutable profile attributes a provider accepts.
type ProfileFields struct {
	Name string
}

// Provider reason codes. Implementations translate their native failures
// into these; anything else is treated as CodeUnknown by consumers.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailInUse         = "email_in_use"
	CodeWeakSecret         = "weak_password"
	CodeInvalidEmail       = "invalid_email"
	CodeRateLimited        = "rate_limited"
	CodeOperationDisabled  = "operation_disabled"
	CodeNetworkFailure     = "network_failure"
	CodeUnknown            = "unknown"
)

// Error is a provider failure with a machine-readable reason code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("identity: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps cause under a reason code. cause may be nil.
func NewError(code string, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

// CodeOf extracts the reason code from a provider error, CodeUnknown for
// anything that is not an identity Error.
func CodeOf(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return CodeUnknown
}

// ChangeFunc observes principal transitions. signedIn false means signed
// out; the principal argument is then zero.
type ChangeFunc func(p Principal, signedIn bool)

// Provider is the identity provider contract. Implementations must fire
// every registered ChangeFunc on sign-in, sign-up and sign-out, and once at
// registration time with the current state so consumers can settle.
type Provider interface {
	SignIn(ctx context.Context, email, secret string) (Principal, error)
	SignUp(ctx context.Context, email, secret string) (Principal, error)
	SignOut(ctx context.Context) error
	OnPrincipalChange(fn ChangeFunc)
	SendVerification(ctx context.Context, p Principal) error
	UpdateProfile(ctx context.Context, p Principal, fields ProfileFields) error
}
