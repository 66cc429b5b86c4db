package xbrl

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeValue converts reported text to won: sign * round(v * 10^|scale|).
// Parenthesized text is negative. ok is false for non-numeric text.
func NormalizeValue(text string, scale int) (int64, bool) {
	s := strings.TrimSpace(text)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}

	if scale < 0 {
		scale = -scale
	}
	v := d.Shift(int32(scale)).Round(0).IntPart()
	if negative {
		v = -v
	}
	return v, true
}
