package models

import (
	"strings"
	"unicode"
)

// Credentials is a username/password pair taken from the login form.
// It is never persisted and the password must never be logged.
type Credentials struct {
	Username string
	Password string
}

// Sanitized returns a copy with control characters removed from both fields
// and surrounding whitespace trimmed from the username.
func (c Credentials) Sanitized() Credentials {
	return Credentials{
		Username: strings.TrimSpace(stripControl(c.Username)),
		Password: stripControl(c.Password),
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
