package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var indianPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount with Indian digit grouping and two decimals,
// e.g. 12,34,567.89.
func FormatINR(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return indianPrinter.Sprint(number.Decimal(f, number.Scale(2)))
}

// FormatAmount renders an amount with exactly two decimals and no grouping.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatPercent trims trailing zeros so 9.00 prints as 9 and 2.50 as 2.5.
func FormatPercent(pct decimal.Decimal) string {
	s := pct.StringFixed(2)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Round2 rounds half away from zero to paise.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// ParseAmount parses a user supplied decimal string.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return decimal.Zero, fmt.Errorf("money: empty amount")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", raw, err)
	}
	return d, nil
}
