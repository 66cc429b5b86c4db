package collect

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"dart_screener/pkg/core/ingest"
	"dart_screener/pkg/core/statement"
	"dart_screener/pkg/models"
)

// Collector builds one company's record from per-year single-company
// statement calls. Each call contributes only its current period.
type Collector struct {
	src     AccountSource
	aliases *statement.AliasTable
	log     zerolog.Logger
}

// NewCollector creates a Collector. A nil alias table uses the embedded default.
func NewCollector(src AccountSource, aliases *statement.AliasTable, log zerolog.Logger) *Collector {
	if aliases == nil {
		aliases = statement.DefaultAliases()
	}
	return &Collector{
		src:     src,
		aliases: aliases,
		log:     log.With().Str("component", "collector").Logger(),
	}
}

// CollectCompany fetches the company overview and the annual statements for
// each year. A year that fails is reported in the failure list and the
// remaining years are still collected. Only a company.json failure is fatal.
func (c *Collector) CollectCompany(ctx context.Context, corpCode string, years []int) (*models.CompanyRecord, []Failure, error) {
	info, err := c.src.FetchCompany(ctx, corpCode)
	if err != nil {
		return nil, nil, fmt.Errorf("company %s: %w", corpCode, err)
	}
	if info == nil {
		return nil, nil, fmt.Errorf("company %s: %w", corpCode, ErrCompanyNotFound)
	}

	rec := models.NewCompanyRecord(corpCode)
	rec.Name = info.CorpName
	rec.StockCode = info.StockCode
	rec.IndustryCode = info.IndustryCode

	ordered := append([]int(nil), years...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	var failures []Failure
	for _, year := range ordered {
		rows, err := c.src.FetchSingleAccounts(ctx, corpCode, year)
		if err != nil {
			c.log.Warn().Err(err).Str("corp_code", corpCode).Int("year", year).Msg("statement fetch failed, skipping year")
			failures = append(failures, Failure{CorpCode: corpCode, Year: year, Stage: StageAccounts, Err: err})
			continue
		}
		if len(rows) == 0 {
			c.log.Debug().Str("corp_code", corpCode).Int("year", year).Msg("no annual statement")
			continue
		}

		idx := statement.Build(lineItems(ingest.ConsolidatedFirst(rows)), false, c.aliases)
		y := &models.YearlyRecord{Year: year}
		n := statement.Populate(y, idx, statement.Current)

		rcept := receiptOf(rows)
		if n > 0 || rcept != "" {
			dst := rec.EnsureYear(year)
			*dst = *y
			dst.RceptNo = rcept
		}
		rec.SetLatestReport(rcept, year)
	}
	return rec, failures, nil
}
