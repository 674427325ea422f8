package email

import "regexp"

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidAddress reports whether s has the basic local@domain.tld shape.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}
