// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsPlausible reports whether the input looks like a reachable phone number.
// The contact-info gate uses this rather than strict validity so that campus
// extensions and local seven-digit formats still pass: a number the parser
// accepts as possible is plausible, and so is any 7-15 digit sequence the
// parser merely considers too short for a full national number.
func IsPlausible(input string) bool {
	digits := countDigits(input)
	if digits < 7 || digits > 15 {
		return false
	}

	number, err := phonenumbers.Parse(strings.TrimSpace(input), defaultRegion)
	if err != nil {
		// Unparseable but digit-dense input (extensions, partial local
		// formats) still counts as a callback path.
		return true
	}

	// TOO_SHORT is deliberately allowed: seven-digit local numbers are
	// reachable through the campus switchboard.
	return phonenumbers.IsPossibleNumberWithReason(number) != phonenumbers.TOO_LONG
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
