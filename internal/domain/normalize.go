package domain

import (
	"regexp"
	"strings"
)

var domainNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,}$`)

// NormalizeName canonicalizes a raw domain entry: lowercase, no scheme,
// no leading www, no path, no port.
func NormalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.TrimPrefix(name, "www.")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	return name
}

// ValidName reports whether a normalized name looks like a registrable domain.
func ValidName(name string) bool {
	return domainNamePattern.MatchString(name)
}
