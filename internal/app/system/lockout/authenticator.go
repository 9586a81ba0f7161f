package lockout

import (
	"errors"

	"github.com/dalemusser/contesthub/internal/domain/models"
)

// ErrInvalidCredentials is returned for a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	// InvalidCredentialsMessage never says which credential was wrong.
	InvalidCredentialsMessage = "Invalid username or password."
	// ResultLoginSuccessful is the history entry for a successful login.
	ResultLoginSuccessful = "Login Successful"
)

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(plaintext, hash string) bool
}

// Authenticator runs the login operation on an account.
type Authenticator struct {
	Policy   Policy
	Verifier Verifier
}

// Login checks plaintext against acct and updates its lockout state and login
// history. It returns nil, a *LockedError or ErrInvalidCredentials.
//
// The lock status and the password are both evaluated on every call. Login
// never persists; the caller saves acct whatever the outcome.
func (a Authenticator) Login(acct *models.Account, plaintext string) error {
	now := a.Policy.now()

	locked := a.Policy.IsLocked(acct)
	valid := a.Verifier.Verify(plaintext, acct.Local.Password)

	if !locked && !valid {
		locked = a.Policy.RegisterFailure(acct)
	}

	switch {
	case locked:
		lerr := &LockedError{Remaining: a.Policy.Remaining(acct)}
		acct.RecordLogin(now, false, lerr.Message())
		return lerr
	case !valid:
		acct.RecordLogin(now, false, InvalidCredentialsMessage)
		return ErrInvalidCredentials
	}

	a.Policy.RegisterSuccess(acct)
	acct.RecordLogin(now, true, ResultLoginSuccessful)
	acct.LastLogin = &now
	return nil
}
