package xbrl

import (
	"strconv"
	"strings"
)

// DefaultScale applies when a fact carries no ADECIMAL attribute (millions).
const DefaultScale = -6

// Fact is one retained <TE> value.
type Fact struct {
	Code    string // normalized ACODE
	Value   string // raw text, e.g. "(1,234)"
	Context string // ACONTEXT
	Scale   int    // ADECIMAL
}

// FactIndex maps a normalized ACODE to its facts in document order. The first
// fact of a code is authoritative.
type FactIndex map[string][]Fact

func (idx FactIndex) add(f Fact) {
	idx[f.Code] = append(idx[f.Code], f)
}

// First returns the authoritative fact for an ACODE in any spelling.
func (idx FactIndex) First(code string) (Fact, bool) {
	facts := idx[NormalizeCode(code)]
	if len(facts) == 0 {
		return Fact{}, false
	}
	return facts[0], true
}

// FactIndexer builds a FactIndex from an annual report XML member.
type FactIndexer interface {
	BuildFactIndex(xml []byte) (FactIndex, error)
}

// NormalizeCode lowercases an ACODE and replaces the namespace separator, so
// "ifrs-full:Revenue" and "ifrs-full_Revenue" meet.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), ":", "_"))
}

// KeepContext accepts current-fiscal-year (CFY), duration (dFY) or instant
// (eFY), consolidated or separate contexts only.
func KeepContext(ctx string) bool {
	if !strings.Contains(ctx, "CFY") {
		return false
	}
	if !strings.Contains(ctx, "dFY") && !strings.Contains(ctx, "eFY") {
		return false
	}
	return strings.Contains(ctx, "ConsolidatedMember") || strings.Contains(ctx, "SeparateMember")
}

// parseScale reads ADECIMAL. present=false means the attribute is missing;
// an unparseable value ("INF") leaves amounts unscaled.
func parseScale(raw string, present bool) int {
	if !present {
		return DefaultScale
	}
	s, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return s
}

// usableValue reports whether extracted text can carry a number.
func usableValue(v string) bool {
	return v != "" && v != "-"
}
