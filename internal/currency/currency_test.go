package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"$1,200.00", "USD"},
		{"€45", "EUR"},
		{"45 EUR", "EUR"},
		{"£20", "GBP"},
		{"A$300", "AUD"},
		{"300 aud", "AUD"},
		{"CA$300", "CAD"},
		{"C$15", "CAD"},
		{"₹5000", "INR"},
		{"Rs. 900", "INR"},
		{"100 dollars", "USD"},
		{"Rp 50.000", "USD"},
		{"", "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.amount))
		})
	}
}

func TestDetectPriority(t *testing.T) {
	// AUD is checked before EUR.
	assert.Equal(t, "AUD", Detect("AUD 10 or €9"))
}

func TestMagnitude(t *testing.T) {
	tests := []struct {
		amount string
		want   float64
		ok     bool
	}{
		{"$1,500.00", 1500, true},
		{"€200", 200, true},
		{"Rp 50.000", 50, true},
		{"1.2.3", 1.2, true},
		{"$.5", 0.5, true},
		{"5.", 5, true},
		{"TBD", 0, false},
		{".", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, ok := Magnitude(tt.amount)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvert(t *testing.T) {
	c := Default()

	assert.Equal(t, "Rp 150.000", c.Convert("$10", types.RateTable{"USD": 1, "IDR": 15000}))
	assert.Equal(t, "Rp 7.750.000", c.Convert("$500", types.RateTable{"USD": 1, "IDR": 15500}))

	// 200 EUR at 0.8 EUR/USD is 250 USD.
	assert.Equal(t, "Rp 3.750.000", c.Convert("€200", types.RateTable{"USD": 1, "EUR": 0.8, "IDR": 15000}))

	// Floors fractional results.
	n, ok := c.Amount("$1.5", types.RateTable{"USD": 1, "IDR": 3})
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)
}

func TestConvertAbsent(t *testing.T) {
	c := Default()
	tests := []struct {
		name   string
		amount string
		rates  types.RateTable
	}{
		{"nil table", "$10", nil},
		{"no number", "negotiable", types.RateTable{"USD": 1, "IDR": 15000}},
		{"missing source rate", "€10", types.RateTable{"USD": 1, "IDR": 15000}},
		{"missing target rate", "$10", types.RateTable{"USD": 1}},
		{"zero source rate", "$10", types.RateTable{"USD": 0, "IDR": 15000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "", c.Convert(tt.amount, tt.rates))
		})
	}
}

func TestConvertIsIdempotent(t *testing.T) {
	c := Default()
	rates := types.RateTable{"USD": 1, "IDR": 16250.5}
	first := c.Convert("$1,234.56", rates)
	assert.Equal(t, first, c.Convert("$1,234.56", rates))
}

func TestFormatOtherLocale(t *testing.T) {
	c := Converter{Target: "USD", Prefix: "$", Locale: language.English}
	assert.Equal(t, "$ 1,234,567", c.Format(1234567))
	c.Prefix = ""
	assert.Equal(t, "1,234", c.Format(1234))
}

func TestNormalized(t *testing.T) {
	c := Default()
	v, ok := c.Normalized("$9", nil)
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)

	v, ok = c.Normalized("$9", types.RateTable{"USD": 1, "IDR": 10})
	assert.True(t, ok)
	assert.Equal(t, 90.0, v)
}

func TestCodes(t *testing.T) {
	assert.Equal(t, []string{"USD", "AUD", "INR", "GBP", "EUR", "CAD"}, Codes())
}
