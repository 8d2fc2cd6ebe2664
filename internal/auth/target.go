package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/securecookie"
)

// TargetCookieName holds the URL a visitor asked for before being sent to login
const TargetCookieName = "authenticationRequestedUrl"

// TargetCookie is a single-use, signed redirect target
type TargetCookie struct {
	codec    *securecookie.SecureCookie
	secure   bool
	sameSite http.SameSite
	maxAge   int
}

// NewTargetCookie signs values with hashKey. The cookie lives for maxAge seconds.
func NewTargetCookie(hashKey []byte, maxAge int, secure bool, sameSite http.SameSite) *TargetCookie {
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(maxAge)
	return &TargetCookie{
		codec:    codec,
		secure:   secure,
		sameSite: sameSite,
		maxAge:   maxAge,
	}
}

// Remember stores target unless it points off-site
func (tc *TargetCookie) Remember(w http.ResponseWriter, target string) error {
	target, ok := SafeTarget(target)
	if !ok {
		return nil
	}

	encoded, err := tc.codec.Encode(TargetCookieName, target)
	if err != nil {
		return err
	}

	http.SetCookie(w, tc.cookie(encoded, tc.maxAge))
	return nil
}

// Peek returns the remembered target without consuming it. Values written by
// Remember are signed; a plain path set by another part of the site is
// accepted as well, as long as it stays on this site.
func (tc *TargetCookie) Peek(r *http.Request) (string, bool) {
	c, err := r.Cookie(TargetCookieName)
	if err != nil {
		return "", false
	}

	var target string
	if err := tc.codec.Decode(TargetCookieName, c.Value, &target); err == nil {
		return SafeTarget(target)
	}

	target = c.Value
	if unescaped, err := url.QueryUnescape(c.Value); err == nil {
		target = unescaped
	}
	return SafeTarget(target)
}

// Consume returns the remembered target, or fallback when there is none,
// and deletes the cookie so the target cannot be used twice
func (tc *TargetCookie) Consume(w http.ResponseWriter, r *http.Request, fallback string) string {
	target, ok := tc.Peek(r)
	if _, err := r.Cookie(TargetCookieName); err == nil {
		http.SetCookie(w, tc.cookie("", -1))
	}
	if !ok {
		return fallback
	}
	return target
}

func (tc *TargetCookie) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     TargetCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   tc.secure,
		SameSite: tc.sameSite,
	}
}

// SafeTarget accepts only absolute paths on this site and returns the
// path with its query. Anything with a scheme or host is rejected.
func SafeTarget(raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "", false
	}

	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target, true
}
