// Package phone canonicalizes free-form phone input so orders can be
// matched by phone across channels regardless of how a customer typed it.
package phone

import "strings"

// Normalize maps raw phone text to the canonical +7XXXXXXXXXX form.
// It strips every character except digits and a leading plus, replaces a
// leading 8 with +7 and prefixes a bare leading 7 with a plus. Numbers
// starting with neither are passed through cleaned. The second return
// value is false when the input contains no phone at all.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", false
	}

	cleaned := digits.String()
	switch {
	case cleaned[0] == '8':
		return "+7" + cleaned[1:], true
	case cleaned[0] == '7' && !hasPlus:
		return "+" + cleaned, true
	case hasPlus:
		return "+" + cleaned, true
	default:
		return cleaned, true
	}
}
