// Package collect turns DART statement responses into CompanyRecords, one
// company at a time or in multi-company batches, and enriches them with facts
// from the annual-report XBRL archives.
package collect

import (
	"context"
	"errors"
	"fmt"

	"dart_screener/pkg/core/ingest"
	"dart_screener/pkg/core/statement"
)

// AccountSource is the part of the DART API the collectors read statements from.
type AccountSource interface {
	FetchCompany(ctx context.Context, corpCode string) (*ingest.CompanyInfo, error)
	FetchSingleAccounts(ctx context.Context, corpCode string, year int) ([]ingest.AccountRow, error)
	FetchMultiAccounts(ctx context.Context, corpCodes []string, year int) ([]ingest.AccountRow, error)
}

// DocumentSource downloads original disclosure archives by receipt number.
type DocumentSource interface {
	DownloadDocument(ctx context.Context, rceptNo string) ([]byte, error)
}

// ReportFinder looks up the annual report receipt of a fiscal year. An
// XBRLEnricher whose DocumentSource also implements it fetches reports for
// years that have figures but no receipt.
type ReportFinder interface {
	FindAnnualReport(ctx context.Context, corpCode string, year int) (string, bool, error)
}

var (
	_ AccountSource  = (*ingest.DARTClient)(nil)
	_ DocumentSource = (*ingest.DARTClient)(nil)
	_ ReportFinder   = (*ingest.DARTClient)(nil)
)

// ErrCompanyNotFound is returned when company.json has no entry for a corp code.
var ErrCompanyNotFound = errors.New("company not found")

// Stage names the step of collection a Failure happened in.
type Stage string

const (
	StageCompany  Stage = "company"
	StageAccounts Stage = "accounts"
	StageXBRL     Stage = "xbrl"
)

// Failure is one isolated unit of work that did not complete. Year is 0 when
// the failure is not tied to a fiscal year.
type Failure struct {
	CorpCode string
	Year     int
	Stage    Stage
	Err      error
}

func (f Failure) Error() string {
	if f.Year == 0 {
		return fmt.Sprintf("%s %s: %v", f.Stage, f.CorpCode, f.Err)
	}
	return fmt.Sprintf("%s %s/%d: %v", f.Stage, f.CorpCode, f.Year, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

func lineItems(rows []ingest.AccountRow) []statement.LineItem {
	items := make([]statement.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, statement.LineItem{
			Name:         r.AccountName,
			Consolidated: r.FsDiv == "CFS",
			Amounts:      r.Amounts(),
		})
	}
	return items
}

// receiptOf returns the first receipt number carried by rows.
func receiptOf(rows []ingest.AccountRow) string {
	for _, r := range rows {
		if r.RceptNo != "" {
			return r.RceptNo
		}
	}
	return ""
}
