package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation rule patterns
var (
	// Invite code pattern - 8 alphanumeric characters, any case
	InviteCodePattern = `^[A-Za-z0-9]{8}$`

	// Name length bounds for groups and challenges, counted in characters
	// after trimming surrounding space
	NameMinLength = 1
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	InviteCode *regexp.Regexp
}{
	InviteCode: regexp.MustCompile(InviteCodePattern),
}

// IsInviteCode reports whether code has the shape of an invite code
func IsInviteCode(code string) bool {
	return CompiledPatterns.InviteCode.MatchString(code)
}

// IsName reports whether name fits the group and challenge name bounds
func IsName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= NameMinLength && n <= NameMaxLength
}

// NormalizeInviteCode returns the canonical (upper-case, trimmed) form of code
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
