// Package xbrl extracts tagged numeric facts from DART original-document
// archives (document.xml) and maps them to canonical indicators.
package xbrl

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"dart_screener/pkg/models"
)

var (
	documentNameMarker = []byte("DOCUMENT-NAME")
	annualReportMarker = []byte(`ACODE="11011"`)
)

// ExtractArchiveMember returns the XML member of a document archive that is
// the annual business report, i.e. whose content carries DOCUMENT-NAME with
// ACODE="11011". Audit reports and attachments in the same archive are skipped.
func ExtractArchiveMember(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, models.NewParseError("xbrl", "archive is not a zip: %v", err)
	}

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		content, err := readMember(f)
		if err != nil {
			return nil, err
		}
		if bytes.Contains(content, documentNameMarker) && bytes.Contains(content, annualReportMarker) {
			return content, nil
		}
	}
	return nil, models.NewParseError("xbrl", "no annual report member (DOCUMENT-NAME ACODE=\"11011\") in archive")
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return content, nil
}

// IndexArchive extracts the annual report member and indexes its facts.
func IndexArchive(archive []byte, indexer FactIndexer) (FactIndex, error) {
	member, err := ExtractArchiveMember(archive)
	if err != nil {
		return nil, err
	}
	return indexer.BuildFactIndex(member)
}
