package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

const missing = "—"

// Money formats v as $1,234.56, or a dash when absent.
func Money(v *float64) string {
	if v == nil {
		return missing
	}
	return "$" + groupThousands(decimal.NewFromFloat(*v).StringFixed(2))
}

// Percent formats a value already in percent units (IVR 0..100).
func Percent(v *float64) string {
	if v == nil {
		return missing
	}
	return decimal.NewFromFloat(*v).StringFixed(1) + "%"
}

// Ratio formats a fraction as a percentage with the given decimals.
func Ratio(v float64, places int32) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(places) + "%"
}

// Fixed formats v with a fixed number of decimals.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
