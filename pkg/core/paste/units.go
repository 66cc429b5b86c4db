package paste

import (
	"regexp"
	"strings"
)

// =============================================================================
// TEXT NORMALIZATION & UNIT DETECTION
// =============================================================================

var (
	fullWidth = strings.NewReplacer(
		"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
		"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
		"，", ",", "（", "(", "）", ")", "－", "-", "　", " ",
	)

	// "in" only counts in the parenthesised "(in millions ...)" form; a bare
	// English "in" elsewhere in a header is not a declaration.
	unitDeclaration = regexp.MustCompile(`(?i)(?:단위|\bunits?\b|\(\s*in\b)\s*[:：]?\s*([^)\]\n]*)`)
)

// normalizeWidth folds full-width digits, commas and parentheses pasted from
// PDF or the DART viewer to ASCII.
func normalizeWidth(s string) string {
	return fullWidth.Replace(s)
}

// DetectUnit returns the multiplier declared in a statement header such as
// "(단위 : 백만원)" or "(in thousands of won)". Without a declaration
// amounts are taken as won.
func DetectUnit(text string) int64 {
	for _, m := range unitDeclaration.FindAllStringSubmatch(text, -1) {
		if mult, ok := unitMultiplier(m[1]); ok {
			return mult
		}
	}
	return 1
}

func unitMultiplier(decl string) (int64, bool) {
	d := strings.ToLower(strings.ReplaceAll(decl, " ", ""))
	switch {
	case strings.Contains(d, "백만원"), strings.Contains(d, "million"):
		return 1_000_000, true
	case strings.Contains(d, "천원"), strings.Contains(d, "thousand"):
		return 1_000, true
	case strings.Contains(d, "억원"):
		return 100_000_000, true
	case strings.Contains(d, "원"), strings.Contains(d, "won"), strings.Contains(d, "krw"):
		return 1, true
	}
	return 0, false
}
