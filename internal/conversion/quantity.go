package conversion

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseQuantity reads a user-typed quantity. Anything that is not a number
// reads as zero.
func ParseQuantity(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ClampQuantity bounds requested to [0, max]. The second return is true when
// the value was lowered to max, which callers surface as a warning. Negative
// input is normalized to zero without a warning. A negative max is treated as
// zero.
func ClampQuantity(requested, max decimal.Decimal) (decimal.Decimal, bool) {
	if max.IsNegative() {
		max = decimal.Zero
	}
	if requested.IsNegative() {
		return decimal.Zero, false
	}
	if requested.GreaterThan(max) {
		return max, true
	}
	return requested, false
}

// ClampInput parses raw and clamps it to [0, max].
func ClampInput(raw string, max decimal.Decimal) (decimal.Decimal, bool) {
	return ClampQuantity(ParseQuantity(raw), max)
}

// HasAnyPositiveQuantity reports whether at least one line requests a
// quantity above zero.
func HasAnyPositiveQuantity(lines []ConversionRequestLine) bool {
	for _, l := range lines {
		if l.RequestedQty.IsPositive() {
			return true
		}
	}
	return false
}
