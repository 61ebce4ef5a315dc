package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency_CanonicalCodesPassThrough(t *testing.T) {
	for _, code := range []string{"USD", "EUR", "GBP", "BRL", "JPY"} {
		assert.Equal(t, code, Currency(code))
	}
}

func TestCurrency_SymbolsAndNames(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"R$", "BRL"},
		{"r$", "BRL"},
		{"€", "EUR"},
		{"euro", "EUR"},
		{"£", "GBP"},
		{"POUND", "GBP"},
		{"pounds", "GBP"},
		{"$", "USD"},
		{"US$", "USD"},
		{"¥", "JPY"},
		{"yen", "JPY"},
		{"rmb", "CNY"},
		{"pesos", "MXN"},
		{" brl ", "BRL"},
		{"  eur", "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.raw))
		})
	}
}

func TestCurrency_UnrecognizedDefaultsToUSD(t *testing.T) {
	for _, raw := range []string{"", "   ", "???", "BITCOIN", "XYZ", "12.50"} {
		assert.Equal(t, DefaultCurrency, Currency(raw), "raw=%q", raw)
	}
}

func TestCurrency_Idempotent(t *testing.T) {
	inputs := []string{"R$", "usd", "€", "garbage", "", "POUND", "BRL"}
	for _, raw := range inputs {
		once := Currency(raw)
		assert.Equal(t, once, Currency(once), "normalize must be idempotent for %q", raw)
	}
}

func TestLookupCurrency_ReportsRecognition(t *testing.T) {
	code, ok := LookupCurrency("R$")
	assert.True(t, ok)
	assert.Equal(t, "BRL", code)

	code, ok = LookupCurrency("not-a-currency")
	assert.False(t, ok)
	assert.Equal(t, DefaultCurrency, code)

	_, ok = LookupCurrency("")
	assert.False(t, ok)
}

func TestIsSupportedCurrency(t *testing.T) {
	assert.True(t, IsSupportedCurrency("USD"))
	assert.True(t, IsSupportedCurrency("BRL"))
	assert.False(t, IsSupportedCurrency("usd"))
	assert.False(t, IsSupportedCurrency("XXX"))
}
