// Package currency derives the converted prize value: it infers the currency
// of a freeform amount, extracts its magnitude and converts it into the
// reference currency using a USD-based rate table.
package currency

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// USD is the base currency of every rate table.
const USD = "USD"

// detectors are checked in order against the upper-cased amount; the first
// match wins.
var detectors = []struct {
	code    string
	markers []string
}{
	{"AUD", []string{"AUD", "AU$", "A$"}},
	{"INR", []string{"INR", "₹", "RS"}},
	{"GBP", []string{"GBP", "£"}},
	{"EUR", []string{"EUR", "€"}},
	{"CAD", []string{"CAD", "CA$", "C$"}},
}

// Detect infers the 3-letter currency code of a freeform amount. Amounts with
// no recognized marker are USD.
func Detect(amount string) string {
	upper := strings.ToUpper(amount)
	for _, d := range detectors {
		for _, m := range d.markers {
			if hasMarker(upper, m) {
				return d.code
			}
		}
	}
	return USD
}

// Codes returns every currency code Detect can report, USD first.
func Codes() []string {
	codes := []string{USD}
	for _, d := range detectors {
		codes = append(codes, d.code)
	}
	return codes
}

// hasMarker reports whether m occurs in s as a token: not preceded by a
// letter, and for two-letter markers such as RS not followed by one either.
func hasMarker(s, m string) bool {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], m)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(m)
		before := i == 0 || !isLetter(s[i-1])
		after := len(m) > 2 || end == len(s) || !isLetter(s[end])
		if before && after {
			return true
		}
		from = i + 1
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}

// Magnitude strips everything but digits and dots from amount and parses the
// longest numeric prefix of what remains. It reports false when no digit is
// present.
func Magnitude(amount string) (float64, bool) {
	var b strings.Builder
	for _, r := range amount {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	// Keep digits and at most one dot.
	end := 0
	seenDot := false
	digits := false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else {
			digits = true
		}
		end++
	}
	if !digits {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Converter converts amounts into one reference currency.
type Converter struct {
	Target string       // reference currency code, e.g. IDR
	Prefix string       // display prefix, e.g. Rp
	Locale language.Tag // digit grouping locale
}

// Default returns the IDR converter.
func Default() Converter {
	return Converter{Target: "IDR", Prefix: "Rp", Locale: language.Indonesian}
}

// Amount converts amount into the target currency, floored to whole units.
// It reports false when rates is nil, amount has no number, or either rate
// is missing or zero.
func (c Converter) Amount(amount string, rates types.RateTable) (int64, bool) {
	if rates == nil {
		return 0, false
	}
	mag, ok := Magnitude(amount)
	if !ok {
		return 0, false
	}
	src := rates[Detect(amount)]
	dst := rates[c.target()]
	if src == 0 || dst == 0 {
		return 0, false
	}
	return int64(math.Floor(mag / src * dst)), true
}

// Convert returns the formatted target amount, e.g. "Rp 24.000.000", or ""
// when the amount cannot be converted.
func (c Converter) Convert(amount string, rates types.RateTable) string {
	n, ok := c.Amount(amount, rates)
	if !ok {
		return ""
	}
	return c.Format(n)
}

// Format renders n with the locale's thousands separators and the prefix.
func (c Converter) Format(n int64) string {
	p := message.NewPrinter(c.Locale)
	grouped := p.Sprintf("%d", n)
	if c.Prefix == "" {
		return grouped
	}
	return c.Prefix + " " + grouped
}

// Normalized returns the value used to order monetary cells: the converted
// amount when rates are available, the raw magnitude otherwise.
func (c Converter) Normalized(amount string, rates types.RateTable) (float64, bool) {
	if rates != nil {
		n, ok := c.Amount(amount, rates)
		return float64(n), ok
	}
	return Magnitude(amount)
}

func (c Converter) target() string {
	if c.Target == "" {
		return "IDR"
	}
	return strings.ToUpper(c.Target)
}
