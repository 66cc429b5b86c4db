package xbrl

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// StreamIndexer builds the fact index with a non-strict token decoder. It
// tolerates unclosed tags, HTML entities and undeclared namespaces; when the
// decoder gives up mid-document the facts seen so far are returned.
type StreamIndexer struct{}

var _ FactIndexer = StreamIndexer{}

type teCell struct {
	code       string
	context    string
	scale      int
	text       strings.Builder
	paragraph  string
	inP        bool
	pText      strings.Builder
	havePValue bool
}

// BuildFactIndex implements FactIndexer.
func (StreamIndexer) BuildFactIndex(doc []byte) (FactIndex, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	idx := make(FactIndex)
	var cell *teCell
	for {
		tok, err := dec.Token()
		if err != nil {
			// io.EOF, or a malformed tail: keep what was indexed.
			return idx, nil
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case strings.EqualFold(t.Name.Local, "TE"):
				cell = startCell(t)
			case cell != nil && strings.EqualFold(t.Name.Local, "P") && !cell.havePValue:
				cell.inP = true
				cell.pText.Reset()
			}
		case xml.CharData:
			if cell == nil {
				continue
			}
			cell.text.Write(t)
			if cell.inP {
				cell.pText.Write(t)
			}
		case xml.EndElement:
			switch {
			case cell != nil && strings.EqualFold(t.Name.Local, "P") && cell.inP:
				cell.inP = false
				if v := strings.TrimSpace(cell.pText.String()); v != "" {
					cell.paragraph = v
					cell.havePValue = true
				}
			case cell != nil && strings.EqualFold(t.Name.Local, "TE"):
				finishCell(idx, cell)
				cell = nil
			}
		}
	}
}

func startCell(t xml.StartElement) *teCell {
	c := &teCell{}
	var code string
	var scaleRaw string
	var scalePresent bool
	for _, a := range t.Attr {
		switch strings.ToUpper(a.Name.Local) {
		case "ACODE":
			code = a.Value
		case "ACONTEXT":
			c.context = a.Value
		case "ADECIMAL":
			scaleRaw, scalePresent = a.Value, true
		}
	}
	if code == "" {
		return nil
	}
	c.code = code
	c.scale = parseScale(scaleRaw, scalePresent)
	return c
}

func finishCell(idx FactIndex, c *teCell) {
	if !KeepContext(c.context) {
		return
	}
	value := c.paragraph
	if !c.havePValue {
		value = strings.TrimSpace(c.text.String())
	}
	if !usableValue(value) {
		return
	}
	idx.add(Fact{
		Code:    NormalizeCode(c.code),
		Value:   value,
		Context: c.context,
		Scale:   c.scale,
	})
}
