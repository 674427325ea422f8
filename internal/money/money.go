// Package money formats currency amounts for emails and invoices.
package money

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is assumed when an order or invoice carries none.
const DefaultCurrency = "TRY"

var symbols = map[string]string{
	"TRY": "TL",
	"USD": "$",
	"EUR": "€",
}

// Formatter renders amounts with two decimals using locale-aware separators.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for a BCP 47 locale such as "tr" or "en".
// Unparseable locales fall back to Turkish.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Turkish
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// Format returns e.g. "1.234,50 TL" for tr or "1,234.50 TL" for en.
func (f Formatter) Format(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	symbol, ok := symbols[currency]
	if !ok {
		symbol = currency
	}
	return f.printer.Sprintf("%.2f", amount) + " " + symbol
}
