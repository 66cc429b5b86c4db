// Package statement indexes DART main-account line items by normalized
// account name and resolves them to canonical fields.
package statement

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	openParen  = regexp.MustCompile(`\s*\(\s*`)
	closeParen = regexp.MustCompile(`\s*\)\s*`)
)

// Normalize prepares an account name for matching: trims, drops any whitespace
// around parentheses, and lowercases.
func Normalize(name string) string {
	n := strings.TrimSpace(name)
	n = openParen.ReplaceAllString(n, "(")
	n = closeParen.ReplaceAllString(n, ")")
	return strings.ToLower(n)
}

// ParseAmount parses a DART amount string ("1,234", "-1,234", "(1,234)").
// Empty and "-" mean not reported.
func ParseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
