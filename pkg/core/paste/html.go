package paste

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// flattenSelector picks the block elements that carry statement headers
// (period, unit) and the table rows themselves, in document order.
const flattenSelector = "h1, h2, h3, h4, h5, h6, p, caption, tr"

// FlattenHTML converts an HTML clipboard paste (DART viewer tables) to the
// line format ParseStatement reads: one line per header block, one
// tab-separated line per table row.
func FlattenHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var lines []string
	doc.Find(flattenSelector).Each(func(i int, s *goquery.Selection) {
		if goquery.NodeName(s) != "tr" {
			// Paragraphs inside cells are read with their row.
			if s.Closest("tr").Length() > 0 {
				return
			}
			if text := collapseSpace(s.Text()); text != "" {
				lines = append(lines, text)
			}
			return
		}

		var cells []string
		s.Find("td, th").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, collapseSpace(cell.Text()))
		})
		if len(cells) == 0 || strings.Join(cells, "") == "" {
			return
		}
		lines = append(lines, strings.Join(cells, "\t"))
	})
	return strings.Join(lines, "\n"), nil
}

// LooksLikeHTML reports whether a paste is an HTML fragment rather than text.
func LooksLikeHTML(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "<table") || strings.Contains(l, "<tr")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
