package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// CorpEntry is one row of the DART corp code dataset.
type CorpEntry struct {
	CorpCode  string `xml:"corp_code"`
	CorpName  string `xml:"corp_name"`
	StockCode string `xml:"stock_code"`
	Modified  string `xml:"modify_date"`
}

// ResolveEntityID maps a 6-digit stock code to the 8-digit DART corp code.
// The dataset is downloaded on first use; a miss returns ("", false, nil).
func (d *DARTClient) ResolveEntityID(ctx context.Context, stockCode string) (string, bool, error) {
	entry, ok, err := d.LookupStock(ctx, stockCode)
	if err != nil || !ok {
		return "", ok, err
	}
	return entry.CorpCode, true, nil
}

// LookupStock returns the full corp code entry for a stock code.
func (d *DARTClient) LookupStock(ctx context.Context, stockCode string) (CorpEntry, bool, error) {
	codes, err := d.corpCodeMap(ctx)
	if err != nil {
		return CorpEntry{}, false, err
	}
	entry, ok := codes[padStockCode(stockCode)]
	return entry, ok, nil
}

// CorpCodeCount reports how many listed companies are cached (0 before first load).
func (d *DARTClient) CorpCodeCount() int {
	d.corpMu.Lock()
	defer d.corpMu.Unlock()
	return len(d.corpCodes)
}

// corpCodeMap returns the cached map, downloading it under the gate on first
// use. A failed download leaves the cache empty so a later call can retry.
func (d *DARTClient) corpCodeMap(ctx context.Context) (map[string]CorpEntry, error) {
	d.corpMu.Lock()
	defer d.corpMu.Unlock()

	if d.corpCodes != nil {
		return d.corpCodes, nil
	}

	resp, err := d.client.Request(ctx, "corpCode.xml", d.params(), true)
	if err != nil {
		return nil, fmt.Errorf("failed to download corp codes: %w", err)
	}

	codes, err := parseCorpCodeArchive(resp.Body)
	if err != nil {
		return nil, err
	}

	d.log.Info().Int("companies", len(codes)).Msg("Loaded corp code mapping")
	d.corpCodes = codes
	return codes, nil
}

func padStockCode(code string) string {
	code = strings.TrimSpace(code)
	if code != "" && len(code) < 6 {
		code = strings.Repeat("0", 6-len(code)) + code
	}
	return code
}

// parseCorpCodeArchive unzips CORPCODE.xml and indexes listed companies by
// stock code. Unlisted companies (blank stock_code) are skipped.
func parseCorpCodeArchive(data []byte) (map[string]CorpEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("corp code archive is not a zip: %w", err)
	}

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		codes, err := decodeCorpCodes(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		return codes, nil
	}
	return nil, fmt.Errorf("corp code archive has no xml member")
}

func decodeCorpCodes(r io.Reader) (map[string]CorpEntry, error) {
	dec := xml.NewDecoder(r)
	codes := make(map[string]CorpEntry)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return codes, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "list" {
			continue
		}
		var entry CorpEntry
		if err := dec.DecodeElement(&entry, &start); err != nil {
			return nil, err
		}
		entry.StockCode = strings.TrimSpace(entry.StockCode)
		entry.CorpCode = strings.TrimSpace(entry.CorpCode)
		if entry.StockCode == "" {
			continue
		}
		codes[entry.StockCode] = entry
	}
}
