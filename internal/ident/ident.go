// Package ident validates and canonicalizes owner/library identifiers.
package ident

import (
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`(?i)^[a-z0-9._-]+/[a-z0-9._-]+$`)

// Normalize canonicalizes an identifier to lowercase "owner/name" form.
// Inputs that do not match the pattern report ok=false; callers treat that
// as a skip condition, never a failure.
func Normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "/")
	if !identPattern.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// Split returns the owner and name halves of a normalized identifier.
func Split(id string) (owner, name string) {
	owner, name, _ = strings.Cut(id, "/")
	return owner, name
}
