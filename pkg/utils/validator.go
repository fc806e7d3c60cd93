package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	pinPattern     = regexp.MustCompile(`^[0-9A-Za-z-]{1,32}$`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidatePIN validates an employee PIN as sent in identity headers
func ValidatePIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("invalid PIN format: %q", pin)
	}
	return nil
}

// ValidateName rejects empty or oversized display names
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 128 {
		return fmt.Errorf("name exceeds 128 characters")
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlPattern.ReplaceAllString(s, ""))
}
