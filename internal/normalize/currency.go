// Package normalize cleans up the noisy field values returned by the
// document-extraction service before they reach the review form.
package normalize

import "strings"

// DefaultCurrency is the canonical code used when a token cannot be resolved
const DefaultCurrency = "USD"

// supportedCurrencies is the fixed set of canonical codes the refund backend accepts
var supportedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"BRL": true,
	"MXN": true,
	"CAD": true,
	"AUD": true,
	"JPY": true,
	"CNY": true,
	"INR": true,
	"CHF": true,
	"COP": true,
}

// currencyAliases maps symbols and spelled-out names to canonical codes.
// Tokens are matched after uppercasing and trimming.
var currencyAliases = map[string]string{
	"$":        "USD",
	"US$":      "USD",
	"DOLLAR":   "USD",
	"DOLLARS":  "USD",
	"€":        "EUR",
	"EURO":     "EUR",
	"EUROS":    "EUR",
	"£":        "GBP",
	"POUND":    "GBP",
	"POUNDS":   "GBP",
	"STERLING": "GBP",
	"R$":       "BRL",
	"REAL":     "BRL",
	"REAIS":    "BRL",
	"MX$":      "MXN",
	"PESO":     "MXN",
	"PESOS":    "MXN",
	"CA$":      "CAD",
	"C$":       "CAD",
	"A$":       "AUD",
	"AU$":      "AUD",
	"¥":        "JPY",
	"YEN":      "JPY",
	"元":        "CNY",
	"YUAN":     "CNY",
	"RMB":      "CNY",
	"₹":        "INR",
	"RS":       "INR",
	"RUPEE":    "INR",
	"RUPEES":   "INR",
	"FR":       "CHF",
	"FRANC":    "CHF",
	"FRANCS":   "CHF",
	"COL$":     "COP",
}

// LookupCurrency resolves a raw extracted currency token to a canonical code.
// The second return value reports whether the token was recognized, so callers
// can observe the guessed-default case instead of it being silent.
func LookupCurrency(raw string) (string, bool) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return DefaultCurrency, false
	}

	if supportedCurrencies[token] {
		return token, true
	}

	if code, ok := currencyAliases[token]; ok {
		return code, true
	}

	return DefaultCurrency, false
}

// Currency is the total form of LookupCurrency: unrecognized or empty input
// degrades to the default code. Idempotent for all inputs.
func Currency(raw string) string {
	code, _ := LookupCurrency(raw)
	return code
}

// IsSupportedCurrency reports whether code is a member of the canonical set
func IsSupportedCurrency(code string) bool {
	return supportedCurrencies[code]
}
