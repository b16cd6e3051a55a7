package validation

import (
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// ValidateUsername accepts 3-64 characters of letters, digits, '_', '.' and '-'.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username", "username must be 3-64 characters of letters, digits, '_', '.' or '-'")
	}
	return nil
}
