// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/contesthub/internal/domain/models"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CanonicalEmail returns the form an email is stored and matched under:
// lowercase, and for Gmail addresses without dots or a +extension, with
// googlemail.com folded into gmail.com. An address that has no local part
// left after folding yields "".
func CanonicalEmail(s string) string {
	e := Email(s)
	at := strings.LastIndex(e, "@")
	if at < 0 {
		return e
	}
	local, domain := e[:at], e[at+1:]

	if domain == "gmail.com" || domain == "googlemail.com" {
		if plus := strings.Index(local, "+"); plus >= 0 {
			local = local[:plus]
		}
		local = strings.ReplaceAll(local, ".", "")
		domain = "gmail.com"
	}
	if local == "" {
		return ""
	}
	return local + "@" + domain
}

// Username trims and lowercases a username.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Identifier normalizes what a user typed to identify themselves, which may
// be a username or an email.
func Identifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// PersonName trims both parts. When no last name is given and the first
// name contains a space, the first word becomes the first name and the rest
// the last name.
func PersonName(first, last string) models.Name {
	first = Name(first)
	last = Name(last)
	if last == "" {
		if i := strings.IndexByte(first, ' '); i > 0 {
			last = strings.TrimSpace(first[i+1:])
			first = first[:i]
		}
	}
	return models.Name{First: first, Last: last}
}

// QueryParam trims a query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
