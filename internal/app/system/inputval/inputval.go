// internal/app/system/inputval/inputval.go
package inputval

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bounds is an inclusive length range, counted in characters.
type Bounds struct {
	Min int
	Max int
}

// Contains reports whether s has between Min and Max characters.
func (b Bounds) Contains(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= b.Min && n <= b.Max
}

// Length bounds for credential fields.
var (
	UsernameBounds = Bounds{Min: 3, Max: 16}
	PasswordBounds = Bounds{Min: 8, Max: 128}
	EmailBounds    = Bounds{Min: 5, Max: 254}
	// LoginBounds covers the login field, which accepts a username or an email.
	LoginBounds = Bounds{Min: UsernameBounds.Min, Max: EmailBounds.Max}
)

// IsValidEmail reports whether email is a plain addr-spec with a dotted
// domain: no display name, no whitespace, no empty or doubled dots.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}
	if !validate.SimpleEmailValid(email) {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, domain := email[:at], email[at+1:]
	if len(local) > 64 || strings.Contains(local, "@") || !dotAtomOK(local) {
		return false
	}
	if !strings.Contains(domain, ".") || !dotAtomOK(domain) {
		return false
	}
	labels := strings.Split(domain, ".")
	for _, l := range labels {
		if len(l) > 63 || strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
			return false
		}
	}
	tld := labels[len(labels)-1]
	if utf8.RuneCountInString(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func dotAtomOK(s string) bool {
	return s != "" &&
		!strings.HasPrefix(s, ".") &&
		!strings.HasSuffix(s, ".") &&
		!strings.Contains(s, "..")
}

// IsValidObjectID reports whether s (trimmed) is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
