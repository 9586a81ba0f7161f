// Package lockout implements the brute-force protection applied to password
// logins: an attempt counter, an exponentially growing lock, and the login
// operation that combines it with password verification.
//
// Locks expire lazily. Nothing sweeps expired locks; any read of the lock
// status clears an expired LockUntil on the in-memory account, and the caller
// persists it with the rest of the login outcome.
package lockout

import (
	"fmt"
	"time"

	"github.com/dalemusser/contesthub/internal/domain/models"
)

const (
	// DefaultMaxAttempts is how many failed attempts are allowed before the
	// first lock.
	DefaultMaxAttempts = 10

	// maxExponent caps the growth so durations stay representable.
	maxExponent = 20
)

// Policy computes lock transitions from an account's attempt counter and
// lock timestamp. The zero value uses DefaultMaxAttempts and time.Now.
type Policy struct {
	MaxAttempts int
	Now         func() time.Time
}

// NewPolicy returns a Policy allowing maxAttempts failures before locking.
func NewPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts}
}

func (p Policy) max() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// LockDuration returns how long an account with the given attempt count is
// locked: 2^n * 5 + 30 seconds, where n = attempts - max, floored at 1.
// With max 10: 11 -> 40s, 12 -> 50s, 13 -> 70s.
func (p Policy) LockDuration(attempts int) time.Duration {
	n := attempts - p.max()
	if n < 1 {
		n = 1
	}
	if n > maxExponent {
		n = maxExponent
	}
	return time.Duration((1<<uint(n))*5+30) * time.Second
}

// IsLocked reports whether acct is currently locked. An expired lock is
// cleared on acct as a side effect.
func (p Policy) IsLocked(acct *models.Account) bool {
	if acct.LockUntil == nil {
		return false
	}
	if !p.now().Before(*acct.LockUntil) {
		acct.LockUntil = nil
		return false
	}
	return true
}

// Remaining returns the time left on an active lock, or zero.
func (p Policy) Remaining(acct *models.Account) time.Duration {
	if acct.LockUntil == nil {
		return 0
	}
	d := acct.LockUntil.Sub(p.now())
	if d < 0 {
		return 0
	}
	return d
}

// RegisterFailure counts a failed attempt and locks the account once the
// counter exceeds the maximum. A locked account is left untouched.
// It reports whether the account is locked afterwards.
func (p Policy) RegisterFailure(acct *models.Account) bool {
	if p.IsLocked(acct) {
		return true
	}
	acct.LoginAttempts++
	if acct.LoginAttempts > p.max() {
		until := p.now().Add(p.LockDuration(acct.LoginAttempts))
		acct.LockUntil = &until
		return true
	}
	return false
}

// RegisterSuccess clears the counter and any lock.
func (p Policy) RegisterSuccess(acct *models.Account) {
	acct.ResetLockout()
}

// LockedError reports a login refused because the account is locked.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return "account locked for " + HumanizeDuration(e.Remaining)
}

// Message is the user-facing text, computed from the remaining time.
func (e *LockedError) Message() string {
	return fmt.Sprintf("Account is locked. Please try again in %s.", HumanizeDuration(e.Remaining))
}

// HumanizeDuration renders d rounded up to the largest whole unit,
// e.g. "40 seconds", "3 minutes", "1 hour".
func HumanizeDuration(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	switch {
	case secs < 60:
		return plural(secs, "second")
	case secs < 3600:
		return plural((secs+59)/60, "minute")
	case secs < 86400:
		return plural((secs+3599)/3600, "hour")
	default:
		return plural((secs+86399)/86400, "day")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
