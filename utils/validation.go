package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyValue    = errors.New("value is required")
	ErrNotANumber    = errors.New("value is not a number")
	ErrNegativePrice = errors.New("price cannot be negative")
)

var telegramUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)

// NormalizeTelegramUsername trims input and drops a leading @.
// It reports false when nothing usable is left.
func NormalizeTelegramUsername(raw string) (string, bool) {
	username := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if !telegramUsernamePattern.MatchString(username) {
		return "", false
	}
	return username, true
}

// ParsePrice reads a non-negative decimal amount.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrEmptyValue
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativePrice
	}
	return d, nil
}

func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SameIDSet reports whether a and b hold the same ids, ignoring order and repeats.
func SameIDSet(a, b []string) bool {
	left := make(map[string]struct{}, len(a))
	for _, id := range a {
		left[id] = struct{}{}
	}
	right := make(map[string]struct{}, len(b))
	for _, id := range b {
		if _, ok := left[id]; !ok {
			return false
		}
		right[id] = struct{}{}
	}
	return len(left) == len(right)
}
