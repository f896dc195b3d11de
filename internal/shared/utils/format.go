package utils

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// FormatPrice renders an amount in soles, e.g. "S/ 25.50".
func FormatPrice(amount float64) string {
	return fmt.Sprintf("S/ %.2f", amount)
}

// RoundMoney rounds to cents.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// MaskSecret keeps the first and last 4 characters of a token for logging.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
