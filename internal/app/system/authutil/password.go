// internal/app/system/authutil/password.go
package authutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum password length in characters.
	MinPasswordLength = 8
	// MaxPasswordLength is the maximum password length in characters.
	MaxPasswordLength = 128
	// DefaultCost is the bcrypt cost used when none is configured.
	DefaultCost = 10

	// bcrypt ignores input past 72 bytes.
	bcryptMaxInput = 72
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordWeak     = errors.New("password is not strong enough")
)

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
// It is safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's supported range.
// A zero cost selects DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the bcrypt cost factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. A malformed hash never
// matches.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plaintext)) == nil
}

// bcryptInput pre-hashes inputs longer than bcrypt reads so that every
// character of a long password counts.
func bcryptInput(plaintext string) []byte {
	if len(plaintext) <= bcryptMaxInput {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(hex.EncodeToString(sum[:]))
}

// ValidatePassword checks the length bounds and, when minEntropyBits is
// positive, the estimated entropy of pw.
func ValidatePassword(pw string, minEntropyBits float64) error {
	n := utf8.RuneCountInString(pw)
	if n < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if n > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if minEntropyBits > 0 {
		if err := passwordvalidator.Validate(pw, minEntropyBits); err != nil {
			return fmt.Errorf("%w: %v", ErrPasswordWeak, err)
		}
	}
	return nil
}
