package format

import (
	"fmt"
	"math"
	"strings"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"KRW": "₩",
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	return Money(amount, "USD")
}

// Money renders amount in the given ISO currency with thousands separators.
// Codes with a known symbol are prefixed ("€1,234.56"); other codes are
// appended ("1,234.56 SEK"); an empty code renders the bare number.
func Money(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	formatted := formatPositiveCurrency(math.Abs(amount))

	if symbol, ok := currencySymbols[code]; ok {
		return sign + symbol + formatted
	}
	if code == "" {
		return sign + formatted
	}
	return sign + formatted + " " + code
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return Money(amount, "")
}

// Percent renders a fraction as a percentage with one decimal (0.125 -> "12.5%").
func Percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// UnitCount renders a unit count, with "unreachable" for negative counts.
func UnitCount(units int) string {
	if units < 0 {
		return "unreachable"
	}
	if units == 0 {
		return "-"
	}
	return formatInteger(fmt.Sprintf("%d", units))
}

func formatPositiveCurrency(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	return formatInteger(intPart) + "." + decPart
}

func formatInteger(intPart string) string {
	if len(intPart) <= 3 {
		return intPart
	}
	var builder strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(digit)
	}
	return builder.String()
}
