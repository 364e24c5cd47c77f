package csvimport

import (
	"strings"

	"github.com/shopspring/decimal"
)

var numberNoise = strings.NewReplacer("R$", "", "r$", "", "%", "", " ", "", "\u00a0", "")

// ParseNumber parses a spreadsheet number written in either pt-BR or en
// style. Whichever of "," and "." appears last is the decimal separator; the
// other is a thousands separator. Currency and percent signs are ignored.
func ParseNumber(raw string) (float64, bool) {
	s := numberNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// ParseCount parses a non-negative integer, truncating any fraction.
func ParseCount(raw string) (int, bool) {
	f, ok := ParseNumber(raw)
	if !ok || f < 0 {
		return 0, false
	}
	return int(f), true
}

// FormatNumber renders v with a comma decimal separator.
func FormatNumber(v float64) string {
	return strings.Replace(decimal.NewFromFloat(v).String(), ".", ",", 1)
}
