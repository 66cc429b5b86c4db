// Package paste parses statement text copied out of an annual report (plain
// text or HTML clipboard) into labelled rows with one value per fiscal year.
package paste

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"dart_screener/pkg/models"
)

// Plausible reporting years.
const (
	MinYear = 1990
	MaxYear = 2099
)

// Marker is the line a statement body starts at.
type Marker struct {
	Text     string
	Contains bool // match by containment instead of the whole trimmed line
}

var (
	BalanceSheetMarker = Marker{Text: "유동자산"}
	CashFlowMarker     = Marker{Text: "영업", Contains: true}
)

var (
	digitRun     = regexp.MustCompile(`\d+`)
	footnote     = regexp.MustCompile(`\s*\(주[^)]*\)\s*`)
	plainValue   = regexp.MustCompile(`^-?\d+$`)
	bracketValue = regexp.MustCompile(`^\(\d+\)$`)
)

// Row is one labelled statement line. Values are indexed like Statement.Years;
// nil is a year the paste has no figure for.
type Row struct {
	Label  string
	Years  [3]int
	Values [3]*int64
}

// MarshalJSON emits the hand-off shape {"label": ..., "<y0>": v|null, ...}.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	label, err := json.Marshal(r.Label)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"label":`)
	buf.Write(label)
	for i, y := range r.Years {
		buf.WriteString(`,"`)
		buf.WriteString(strconv.Itoa(y))
		buf.WriteString(`":`)
		if r.Values[i] == nil {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatInt(*r.Values[i], 10))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Statement is a parsed paste: the reporting year first, then the two prior
// years, and rows in document order.
type Statement struct {
	Years [3]int
	Unit  int64
	Rows  []Row
}

type cellKind int

const (
	cellBlank cellKind = iota
	cellValue
	cellLabel
)

type cell struct {
	kind  cellKind
	value int64
	label string
}

// ParseStatement parses one pasted statement. The reporting year is the first
// plausible four-digit year in the text and the body starts at the first line
// matching marker. Either missing is a ParseError.
func ParseStatement(text string, marker Marker) (*Statement, error) {
	text = normalizeWidth(strings.ReplaceAll(text, "\r\n", "\n"))

	y0, ok := firstYear(text)
	if !ok {
		return nil, models.NewParseError("paste", "no reporting year between %d and %d found", MinYear, MaxYear)
	}
	body, ok := trimToMarker(text, marker)
	if !ok {
		return nil, models.NewParseError("paste", "section marker %q not found", marker.Text)
	}

	st := &Statement{
		Years: [3]int{y0, y0 - 1, y0 - 2},
		Unit:  DetectUnit(text),
	}

	var label string
	var run []cell
	started := false
	flush := func() {
		if started {
			st.Rows = append(st.Rows, Row{Label: label, Years: st.Years, Values: assignColumns(run)})
		}
		started = false
	}
	for _, line := range body {
		if row, ok := tabRow(line, st); ok {
			flush()
			st.Rows = append(st.Rows, row)
			continue
		}
		for _, field := range strings.Split(line, "\t") {
			lbl, cells := splitField(field, st.Unit)
			switch {
			case lbl != "" && len(cells) > 0:
				// Label and figures on one line read like a tab row.
				flush()
				st.Rows = append(st.Rows, Row{Label: lbl, Years: st.Years, Values: positional(cells)})
			case lbl != "":
				flush()
				label, run, started = lbl, nil, true
			case started:
				run = append(run, cells...)
			}
		}
	}
	flush()
	return st, nil
}

func firstYear(text string) (int, bool) {
	for _, run := range digitRun.FindAllString(text, -1) {
		if len(run) != 4 {
			continue
		}
		y, _ := strconv.Atoi(run)
		if y >= MinYear && y <= MaxYear {
			return y, true
		}
	}
	return 0, false
}

func trimToMarker(text string, m Marker) ([]string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		// A row is matched on its label, without a tab cell's or the
		// line's own figures.
		head, _ := splitField(strings.SplitN(line, "\t", 2)[0], 1)
		if head == "" {
			continue
		}
		if m.Contains && strings.Contains(head, m.Text) || !m.Contains && head == m.Text {
			return lines[i:], true
		}
	}
	return nil, false
}

// tabRow reads a tab-separated line carrying a label and its figures. The
// columns are positional there, so no gap inference is needed. ok is false
// when the line has no figures and must go through the line heuristic.
func tabRow(line string, st *Statement) (Row, bool) {
	if !strings.Contains(line, "\t") {
		return Row{}, false
	}
	fields := strings.Split(line, "\t")
	start := 0
	for start < len(fields) && strings.TrimSpace(fields[start]) == "" {
		start++
	}
	if start == len(fields) {
		return Row{}, false
	}
	head := classify(fields[start], st.Unit)
	if head.kind != cellLabel {
		return Row{}, false
	}

	row := Row{Label: head.label, Years: st.Years}
	found := false
	for i, f := range fields[start+1:] {
		if i >= len(row.Values) {
			break
		}
		if c := classify(f, st.Unit); c.kind == cellValue {
			row.Values[i] = models.Int64(c.value)
			found = true
		}
	}
	return row, found
}

// splitField breaks one non-tab field into a label and the figures that
// trail it. Figures are whitespace separated and only commas are stripped
// inside each, so "1,000 2,000" stays two values. A field with no trailing
// figures is all label; an empty field is one blank cell.
func splitField(field string, unit int64) (string, []cell) {
	tokens := strings.Fields(footnote.ReplaceAllString(field, " "))
	if len(tokens) == 0 {
		return "", []cell{{kind: cellBlank}}
	}
	start := len(tokens)
	for start > 0 && classify(tokens[start-1], unit).kind != cellLabel {
		start--
	}
	cells := make([]cell, 0, len(tokens)-start)
	for _, t := range tokens[start:] {
		cells = append(cells, classify(t, unit))
	}
	if start == 0 {
		return "", cells
	}
	return cleanLabel(strings.Join(tokens[:start], " ")), cells
}

// positional maps figures written on a label's own line to y0, y1, y2 in order.
func positional(cells []cell) [3]*int64 {
	var out [3]*int64
	for i, c := range cells {
		if i >= len(out) {
			break
		}
		if c.kind == cellValue {
			out[i] = models.Int64(c.value)
		}
	}
	return out
}

func classify(field string, unit int64) cell {
	t := strings.TrimSpace(field)
	if t == "" || t == "-" {
		return cell{kind: cellBlank}
	}

	compact := strings.ReplaceAll(t, ",", "")
	switch {
	case plainValue.MatchString(compact):
		v, err := strconv.ParseInt(compact, 10, 64)
		if err == nil {
			return cell{kind: cellValue, value: v * unit}
		}
	case bracketValue.MatchString(compact):
		v, err := strconv.ParseInt(compact[1:len(compact)-1], 10, 64)
		if err == nil {
			return cell{kind: cellValue, value: -v * unit}
		}
	}
	return cell{kind: cellLabel, label: cleanLabel(t)}
}

func cleanLabel(s string) string {
	return strings.TrimSpace(footnote.ReplaceAllString(s, " "))
}

// assignColumns recovers year identity from blank runs around the figures
// that follow a label.
func assignColumns(run []cell) [3]*int64 {
	var out [3]*int64
	var values []int64
	var gaps []int // gaps[i] = blanks before values[i]; last entry trails
	blanks := 0
	for _, c := range run {
		if c.kind == cellValue {
			values = append(values, c.value)
			gaps = append(gaps, blanks)
			blanks = 0
			continue
		}
		blanks++
	}
	gaps = append(gaps, blanks)

	long := func(n int) bool { return n >= 2 }
	switch {
	case len(values) >= 3:
		for i := 0; i < 3; i++ {
			out[i] = models.Int64(values[i])
		}
	case len(values) == 2:
		lead, mid := gaps[0], gaps[1]
		a, b := models.Int64(values[0]), models.Int64(values[1])
		switch {
		case long(lead):
			out[1], out[2] = a, b
		case long(mid):
			out[0], out[2] = a, b
		default:
			// Long trailing gap, or no long gap at all: y2 is missing.
			out[0], out[1] = a, b
		}
	case len(values) == 1:
		lead, trail := gaps[0], gaps[1]
		v := models.Int64(values[0])
		switch {
		case long(lead) && !long(trail):
			out[2] = v
		case long(trail) && !long(lead):
			out[0] = v
		default:
			out[1] = v
		}
	}
	return out
}

// Value returns the row's figure for year.
func (r Row) Value(year int) *int64 {
	for i, y := range r.Years {
		if y == year {
			return r.Values[i]
		}
	}
	return nil
}
