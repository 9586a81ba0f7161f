// internal/app/features/authn/errors.go
package authn

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/contesthub/internal/app/system/lockout"
)

// User-facing messages.
const (
	MsgUserNotFound         = "That user was not found. Please enter valid user credentials."
	MsgTokenInvalid         = "Password reset token is invalid or has expired."
	MsgSendFailed           = "Unable to send email"
	MsgSessionFailed        = "Error establishing session"
	MsgInvalidBody          = "Invalid request body."
	MsgInternal             = "Something went wrong. Please try again."
	MsgAccountCreated       = "Account created. Confirmation email sent."
	MsgAccountCreatedNoMail = "Account created, but failed to send new account email"
	MsgResetDone            = "Password Reset and login successful!"
	MsgResetMailSent        = " Confirmation email sent."
	MsgResetMailFailed      = " Unable to send confirmation email"
)

// ErrTokenInvalid is returned when a reset token is unknown or expired.
var ErrTokenInvalid = errors.New("reset token invalid or expired")

// ValidationError reports a request field that failed shape checks. Like
// NotFoundError, the status depends on the operation: 409 for signup, 401 for
// login and password-authenticated reset, 400 otherwise.
type ValidationError struct {
	Field   string
	Message string
	Status  int
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(status int, field, msg string) error {
	return &ValidationError{Field: field, Message: msg, Status: status}
}

// ConflictError reports a username or email that is already registered.
type ConflictError struct {
	Field string // "username" or "email"
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("An account already exists with %s %s", e.Field, e.Value)
}

// NotFoundError reports a missing account. The status differs by operation.
type NotFoundError struct {
	Message string
	Status  int
}

func (e *NotFoundError) Error() string { return e.Message }

// TransportError wraps a mail delivery failure.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

func persist(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// statusAndMessage maps an error from the Service to an HTTP status and the
// message shown to the client.
func statusAndMessage(err error) (int, string) {
	var (
		verr *ValidationError
		cerr *ConflictError
		nerr *NotFoundError
		lerr *lockout.LockedError
		terr *TransportError
	)
	switch {
	case errors.As(err, &verr):
		if verr.Status == 0 {
			return http.StatusBadRequest, verr.Message
		}
		return verr.Status, verr.Message
	case errors.As(err, &cerr):
		return http.StatusConflict, cerr.Error()
	case errors.As(err, &nerr):
		return nerr.Status, nerr.Message
	case errors.As(err, &lerr):
		return http.StatusUnauthorized, lerr.Message()
	case errors.Is(err, lockout.ErrInvalidCredentials):
		return http.StatusUnauthorized, lockout.InvalidCredentialsMessage
	case errors.Is(err, ErrTokenInvalid):
		return http.StatusBadRequest, MsgTokenInvalid
	case errors.As(err, &terr):
		return http.StatusInternalServerError, terr.Message
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
