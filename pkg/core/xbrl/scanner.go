package xbrl

import (
	"regexp"
	"strings"
)

var (
	tePattern      = regexp.MustCompile(`(?s)<TE(\s[^>]*)>(.*?)</TE>`)
	acodeAttr      = regexp.MustCompile(`\bACODE="([^"]+)"`)
	acontextAttr   = regexp.MustCompile(`\bACONTEXT="([^"]*)"`)
	adecimalAttr   = regexp.MustCompile(`\bADECIMAL="([^"]*)"`)
	paragraphValue = regexp.MustCompile(`(?s)<P[^>]*>([^<]+)</P>`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
)

// ScanIndexer builds the fact index with a regex scan over <TE> cells. DART
// report members are large and frequently not well-formed XML, so no tree is
// built.
type ScanIndexer struct{}

var _ FactIndexer = ScanIndexer{}

// BuildFactIndex implements FactIndexer.
func (ScanIndexer) BuildFactIndex(xml []byte) (FactIndex, error) {
	idx := make(FactIndex)
	for _, m := range tePattern.FindAllSubmatch(xml, -1) {
		attrs, content := m[1], m[2]

		code := acodeAttr.FindSubmatch(attrs)
		if code == nil {
			continue
		}

		var context string
		if c := acontextAttr.FindSubmatch(attrs); c != nil {
			context = string(c[1])
		}
		if !KeepContext(context) {
			continue
		}

		var scale int
		if d := adecimalAttr.FindSubmatch(attrs); d != nil {
			scale = parseScale(string(d[1]), true)
		} else {
			scale = parseScale("", false)
		}

		var value string
		if p := paragraphValue.FindSubmatch(content); p != nil {
			value = strings.TrimSpace(string(p[1]))
		} else {
			value = strings.TrimSpace(tagPattern.ReplaceAllString(string(content), ""))
		}
		if !usableValue(value) {
			continue
		}

		idx.add(Fact{
			Code:    NormalizeCode(string(code[1])),
			Value:   value,
			Context: context,
			Scale:   scale,
		})
	}
	return idx, nil
}
