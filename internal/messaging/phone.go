package messaging

import (
	"strings"
)

// DefaultCountryCode is prefixed to national numbers (DDD + subscriber).
const DefaultCountryCode = "55"

// Digits strips everything but ASCII digits.
func Digits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneSuffix returns the last n digits of value, or "" when it has fewer.
func PhoneSuffix(value string, n int) string {
	digits := Digits(value)
	if n <= 0 || len(digits) < n {
		return ""
	}
	return digits[len(digits)-n:]
}

// NormalizeE164 returns +<digits>, adding the default country code to
// national numbers.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := Digits(value)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(value, "+") && (len(digits) == 10 || len(digits) == 11) {
		digits = DefaultCountryCode + digits
	}
	return "+" + digits
}
