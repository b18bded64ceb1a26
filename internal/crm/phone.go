package crm

import (
	"strings"
	"unicode"
)

// NormalizePhone converts a user-entered phone number to E.164 as the
// providers require it. Numbers without a country prefix are assumed to be
// German. Returns "" when the cleaned number does not look valid; callers
// skip the field rather than fail the whole registration.
func NormalizePhone(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	if cleaned == "" {
		return ""
	}

	if !strings.HasPrefix(cleaned, "+") {
		switch {
		case strings.HasPrefix(cleaned, "0"):
			cleaned = "+49" + cleaned[1:]
		case strings.HasPrefix(cleaned, "49"):
			cleaned = "+" + cleaned
		default:
			cleaned = "+49" + cleaned
		}
	}

	if len(cleaned) < 11 {
		return ""
	}
	for _, r := range cleaned[1:] {
		if !unicode.IsDigit(r) {
			return ""
		}
	}

	return cleaned
}
