package domain

import (
	"regexp"
)

// significantDigits is the length of a subscriber number without country code or trunk
// prefix ("0712345678", "254712345678" and "+254 712 345 678" share the same 9 digits).
const significantDigits = 9

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhone reduces a phone number to its significant digits so that differently
// formatted numbers for the same line compare equal.
func NormalizePhone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) > significantDigits {
		digits = digits[len(digits)-significantDigits:]
	}
	return digits
}

// SamePhone compares two phone numbers after normalization. Empty numbers never match.
func SamePhone(a, b string) bool {
	na := NormalizePhone(a)
	return na != "" && na == NormalizePhone(b)
}
