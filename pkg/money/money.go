package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minorExponent is the scale of every supported currency (cents, pence, kobo).
const minorExponent = -2

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"NGN": "₦",
}

// ToDecimal converts an amount in minor units into its major-unit value.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, minorExponent)
}

// Format renders minor units for display, e.g. 123456 USD -> "$1,234.56".
// Unknown currencies are prefixed with their code.
func Format(minor int64, currency string) string {
	fixed := ToDecimal(minor).StringFixed(-minorExponent)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, frac, _ := strings.Cut(fixed, ".")

	prefix, ok := symbols[currency]
	if !ok {
		prefix = currency + " "
	}
	return sign + prefix + group(whole) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
