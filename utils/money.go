package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmountCents converts a decimal major-unit string ("75", "75.5", "75.50")
// into integer cents. More than two fractional digits is an error rather than a
// silent rounding.
func ParseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as a fixed two-decimal string, e.g. 7550 -> "75.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
