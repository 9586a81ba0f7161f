// Package resettoken issues the opaque secrets used in password-reset links.
package resettoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

const (
	// TokenBytes is the amount of entropy per token (hex-encoded to 32 chars).
	TokenBytes = 16
	// DefaultTTL is how long a reset token stays valid.
	DefaultTTL = 120 * time.Minute
)

// Issuer generates reset tokens from a cryptographically secure source.
type Issuer struct {
	rand io.Reader
	ttl  time.Duration
}

// New returns an Issuer reading from crypto/rand. A non-positive ttl selects
// DefaultTTL.
func New(ttl time.Duration) *Issuer {
	return NewWithReader(rand.Reader, ttl)
}

// NewWithReader returns an Issuer reading from r.
func NewWithReader(r io.Reader, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{rand: r, ttl: ttl}
}

// TTL returns the validity window for issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a new hex-encoded token. A failing random source is an error;
// there is no fallback.
func (i *Issuer) Issue() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := io.ReadFull(i.rand, b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Expiry returns the expiry for a token issued at now.
func (i *Issuer) Expiry(now time.Time) time.Time {
	return now.Add(i.ttl).UTC()
}
