// Package identity derives the identity key used to decide whether two
// listings refer to the same real-world item.
package identity

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a raw listing URL into an identity key.
//
// A parseable absolute URL becomes scheme://host/path, lower-cased, with the
// query string, fragment and trailing slashes removed. Anything else (a
// relative reference, a malformed URL) falls back to the lower-cased trimmed
// input. Normalize never fails; empty input yields "".
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(trimmed)
	}

	key := u.Scheme + "://" + u.Host + u.EscapedPath()
	return strings.ToLower(strings.TrimRight(key, "/"))
}

// Equal reports whether two raw URLs share an identity key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
