// internal/domain/models/account.go
package models

// Terminology: Account Identifiers
//   - ID / _id: The MongoDB ObjectID that uniquely identifies an account record
//   - Username: the lowercase handle chosen at signup (local.username)
//   - Email: the normalized, lowercase address (local.email)

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is an ordered enumeration; higher values carry more privilege.
type Role int

const (
	RoleUser  Role = 10
	RoleAdmin Role = 100
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Account tags used for downstream bookkeeping.
const (
	TagRegistrationEmailFailed = "REGISTRATION_EMAIL_FAILED"
)

// Name is the display name of an account holder.
type Name struct {
	First string `bson:"first" json:"first"`
	Last  string `bson:"last" json:"last"`
}

// LocalCredentials holds the username/password credentials.
// Password is always a bcrypt hash once the account has been persisted.
type LocalCredentials struct {
	Username string `bson:"username"`
	Email    string `bson:"email"`
	Password string `bson:"password"`
}

// LoginEvent is one entry in an account's append-only login history.
type LoginEvent struct {
	Time    time.Time `bson:"time" json:"time"`
	Success bool      `bson:"success" json:"success"`
	Result  string    `bson:"result" json:"result"`
}

// Account is the internal user entity, including credentials and security state.
// It never leaves the server as-is; use Public for anything sent to a client.
type Account struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Local LocalCredentials   `bson:"local"`
	Name  Name               `bson:"name"`
	Role  Role               `bson:"role"`
	Tags  []string           `bson:"tags,omitempty"`

	// Lockout state. A nil LockUntil means the account is not locked.
	LoginAttempts int        `bson:"loginAttempts"`
	LockUntil     *time.Time `bson:"lockUntil,omitempty"`
	LastLogin     *time.Time `bson:"lastLogin,omitempty"`

	// Reset state. Token and expiry are set and cleared together.
	ResetPasswordToken   string     `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time `bson:"resetPasswordExpires,omitempty"`

	Logins []LoginEvent `bson:"logins"`

	Created  time.Time `bson:"created"`
	Modified time.Time `bson:"modified"`
}

// AddTag adds tag to the account unless it is already present.
// It reports whether the tag was added.
func (a *Account) AddTag(tag string) bool {
	if a.HasTag(tag) {
		return false
	}
	a.Tags = append(a.Tags, tag)
	return true
}

// HasTag reports whether the account carries tag.
func (a *Account) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RecordLogin appends an event to the login history.
func (a *Account) RecordLogin(at time.Time, success bool, result string) {
	a.Logins = append(a.Logins, LoginEvent{
		Time:    at.UTC(),
		Success: success,
		Result:  result,
	})
}

// SetResetToken stores a reset token together with its expiry.
func (a *Account) SetResetToken(token string, expires time.Time) {
	exp := expires.UTC()
	a.ResetPasswordToken = token
	a.ResetPasswordExpires = &exp
}

// ClearResetToken removes both reset fields.
func (a *Account) ClearResetToken() {
	a.ResetPasswordToken = ""
	a.ResetPasswordExpires = nil
}

// ResetLockout clears the attempt counter and any lock.
func (a *Account) ResetLockout() {
	a.LoginAttempts = 0
	a.LockUntil = nil
}

// Touch updates the modified timestamp.
func (a *Account) Touch(now time.Time) {
	a.Modified = now.UTC()
}

// PublicAccount is the externally safe projection of an Account.
// Timestamps are Unix milliseconds.
type PublicAccount struct {
	ID       string      `json:"_id"`
	Created  int64       `json:"created"`
	Modified int64       `json:"modified"`
	Name     Name        `json:"name"`
	Role     Role        `json:"role"`
	Local    PublicLocal `json:"local"`
}

// PublicLocal exposes only the username of the local credentials.
type PublicLocal struct {
	Username string `json:"username"`
}

// Public builds a fresh PublicAccount from the account.
func (a *Account) Public() PublicAccount {
	role := a.Role
	if role == 0 {
		role = RoleUser
	}
	return PublicAccount{
		ID:       a.ID.Hex(),
		Created:  a.Created.UnixMilli(),
		Modified: a.Modified.UnixMilli(),
		Name:     a.Name,
		Role:     role,
		Local:    PublicLocal{Username: a.Local.Username},
	}
}
