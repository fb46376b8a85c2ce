package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for groups that do not specify one.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// SupportedCurrency reports whether code has a known symbol.
func SupportedCurrency(code string) bool {
	_, ok := currencySymbols[code]
	return ok
}

// CurrencySymbol returns the symbol for an ISO currency code, "$" if unknown.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return "$"
}

// FormatAmount renders the absolute value of amount with the currency symbol,
// two decimals and comma thousands separators, e.g. "$1,234.50". NaN and
// infinite amounts render as zero.
func FormatAmount(amount float64, currency string) string {
	if !finite(amount) {
		amount = 0
	}
	fixed := decimal.NewFromFloat(amount).Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(CurrencySymbol(currency))
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
