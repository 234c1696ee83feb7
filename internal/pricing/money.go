package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// Currency identifies one of the settlement currencies supported by the quote tool.
type Currency string

const (
	// CurrencyEUR is the euro settlement currency.
	CurrencyEUR Currency = "EUR"
	// CurrencyUSD is the US dollar settlement currency.
	CurrencyUSD Currency = "USD"
	// CurrencyGBP is the pound sterling settlement currency.
	CurrencyGBP Currency = "GBP"
)

// ErrUnknownCurrency is returned when a currency code is not supported.
var ErrUnknownCurrency = errors.New("unknown currency")

// ParseCurrency normalises and validates a currency code.
func ParseCurrency(value string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(value))) {
	case CurrencyEUR:
		return CurrencyEUR, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	case CurrencyGBP:
		return CurrencyGBP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, value)
	}
}

// Valid reports whether the currency is one of the supported codes.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP:
		return true
	default:
		return false
	}
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyUSD:
		return "$"
	case CurrencyGBP:
		return "£"
	default:
		return string(c)
	}
}

// ParseAmount converts a 2-decimal fixed point string such as "1750.00" into
// minor units. Amounts keep at most two fractional digits; anything beyond is
// rejected rather than rounded.
func ParseAmount(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("amount is empty")
	}
	neg := false
	if strings.HasPrefix(trimmed, "-") {
		neg = true
		trimmed = trimmed[1:]
	}
	whole := trimmed
	frac := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		whole = trimmed[:idx]
		frac = trimmed[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", value)
	}
	// ParseInt tolerates a sign, so digits are checked explicitly; "--5" and
	// "5.-5" must not parse
	if !digitsOnly(whole) || (frac != "" && !digitsOnly(frac)) {
		return 0, fmt.Errorf("amount %q is not a valid decimal", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatAmount renders minor units as a 2-decimal display string with the
// currency symbol, e.g. "€1750.00".
func FormatAmount(amount Money, currency Currency) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	units := amount / 100
	cents := amount % 100
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(currency.Symbol())
	b.WriteString(strconv.FormatInt(units, 10))
	b.WriteByte('.')
	if cents < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(cents, 10))
	return b.String()
}
