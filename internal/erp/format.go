package erp

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCurrency renders an amount with thousands separators and two
// decimals, prefixed by the company currency when one is configured.
func (c *Client) FormatCurrency(amount float64) string {
	s := printer.Sprintf("%.2f", amount)
	if c != nil && c.Config != nil && c.Config.Currency != "" {
		return c.Config.Currency + " " + s
	}
	return s
}

// FormatQty renders a quantity without trailing zeros.
func FormatQty(d decimal.Decimal) string {
	if d.IsInteger() {
		return printer.Sprintf("%d", d.IntPart())
	}
	return d.String()
}

// str reads a loosely typed JSON value as a string; nil reads as "".
func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// num reads a JSON number (or numeric string) as a decimal; anything else
// reads as zero.
func num(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	case int:
		return decimal.NewFromInt(int64(n))
	}
	return decimal.Zero
}

func intField(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
