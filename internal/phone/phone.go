package phone

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotNormalizable is returned when a raw phone string cannot be coerced
// into E.164.
var ErrNotNormalizable = errors.New("phone: not normalizable")

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Normalize converts arbitrary external phone formats to E.164.
//
// The check order matters: the 10-digit and 11-digit-leading-1 cases are
// handled before the generic 11-15 range so North-American numbers are not
// mis-prefixed.
func Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)

	if len(digits) < 10 {
		return "", ErrNotNormalizable
	}

	// US/CA local number without country code.
	if len(digits) == 10 {
		return "+1" + digits, nil
	}

	// US/CA number with country code.
	if len(digits) == 11 && digits[0] == '1' {
		return "+" + digits, nil
	}

	// International number already carrying a country code.
	if len(digits) >= 11 && len(digits) <= 15 {
		return "+" + digits, nil
	}

	// Too many digits.
	return "", ErrNotNormalizable
}

// IsValidE164 reports whether s is already a canonical E.164 string.
//
// This is the gate for user-supplied phone numbers on direct create/update
// paths. It is intentionally stricter than Normalize, which constructs
// canonical strings from loose input during reconciliation.
func IsValidE164(s string) bool {
	return e164Pattern.MatchString(s)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
