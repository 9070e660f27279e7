// Package domainname normalizes and validates domain names the way the
// console's domain input does: operators paste URLs, host:port pairs or
// whole comma-separated lists, and the gateway reduces them to bare,
// lowercase domain names before they reach the upstream API.
package domainname

import (
	"regexp"
	"strings"
)

// domainRe accepts dotted lowercase labels with an optional leading
// wildcard. Single-label names (e.g. "localhost") are rejected, matching
// the upstream's own validation.
var domainRe = regexp.MustCompile(`^(\*\.)?([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// Clean normalizes a single pasted value into a bare domain name. It strips
// surrounding whitespace, a URL scheme, any path or query suffix, a port
// suffix and a trailing dot, and lowercases the rest. Clean is idempotent.
func Clean(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	// Drop a :port suffix, but only when what follows the colon is numeric
	// so IPv6 literals and stray input are left alone.
	if i := strings.LastIndex(s, ":"); i >= 0 {
		if port := s[i+1:]; port != "" && isDigits(port) {
			s = s[:i]
		}
	}
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}

// Expand splits a pasted blob on commas, whitespace and newlines, cleans
// each piece and drops empties and duplicates, preserving first-seen order.
func Expand(blob string) []string {
	fields := strings.FieldsFunc(blob, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		d := Clean(f)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// IsValid reports whether s is a well-formed domain name, optionally with a
// leading "*." wildcard label. It expects already-cleaned input.
func IsValid(s string) bool {
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	return domainRe.MatchString(s)
}

// IsWildcard reports whether s is a wildcard domain ("*.example.com").
func IsWildcard(s string) bool {
	return strings.HasPrefix(s, "*.")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
