package collect

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"dart_screener/pkg/core/ingest"
	"dart_screener/pkg/core/statement"
	"dart_screener/pkg/models"
)

// periodOffsets maps the three amounts of a filing to fiscal-year offsets
// from its reporting year.
var periodOffsets = [3]struct {
	period statement.Period
	offset int
}{
	{statement.Current, 0},
	{statement.Prior, -1},
	{statement.PriorPrior, -2},
}

// BatchCollector collects many companies with the multi-company statement
// endpoint. Every filing reports three fiscal years; a year filled from a
// more recent filing is never overwritten by an older one.
type BatchCollector struct {
	src       AccountSource
	aliases   *statement.AliasTable
	chunkSize int
	log       zerolog.Logger
}

// NewBatchCollector creates a BatchCollector. A nil alias table uses the
// embedded default.
func NewBatchCollector(src AccountSource, aliases *statement.AliasTable, log zerolog.Logger) *BatchCollector {
	if aliases == nil {
		aliases = statement.DefaultAliases()
	}
	return &BatchCollector{
		src:       src,
		aliases:   aliases,
		chunkSize: ingest.MaxMultiEntities,
		log:       log.With().Str("component", "batch_collector").Logger(),
	}
}

// CollectMany returns one record per distinct corp code. Reporting years are
// requested most recent first, once per chunk of at most 100 companies. A
// failed request is recorded for every company of its chunk and the other
// years and chunks continue.
func (b *BatchCollector) CollectMany(ctx context.Context, corpCodes []string, years []int) (map[string]*models.CompanyRecord, []Failure) {
	records := make(map[string]*models.CompanyRecord, len(corpCodes))
	var ids []string
	for _, id := range corpCodes {
		if _, dup := records[id]; dup || id == "" {
			continue
		}
		records[id] = models.NewCompanyRecord(id)
		ids = append(ids, id)
	}

	requested := make(map[int]bool, len(years))
	for _, y := range years {
		requested[y] = true
	}
	reporting := make([]int, 0, len(requested))
	for y := range requested {
		reporting = append(reporting, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(reporting)))

	resolved := make(map[string]map[int]bool, len(ids))
	for _, id := range ids {
		resolved[id] = make(map[int]bool)
	}

	var failures []Failure
	for _, year := range reporting {
		for start := 0; start < len(ids); start += b.chunkSize {
			end := start + b.chunkSize
			if end > len(ids) {
				end = len(ids)
			}
			chunk := ids[start:end]

			rows, err := b.src.FetchMultiAccounts(ctx, chunk, year)
			if err != nil {
				b.log.Warn().Err(err).Int("year", year).Int("companies", len(chunk)).Msg("multi-company fetch failed, skipping year")
				for _, id := range chunk {
					failures = append(failures, Failure{CorpCode: id, Year: year, Stage: StageAccounts, Err: err})
				}
				continue
			}

			byCorp := groupByCorp(rows)
			for _, id := range chunk {
				if corpRows := byCorp[id]; len(corpRows) > 0 {
					b.merge(records[id], resolved[id], requested, year, corpRows)
				}
			}
		}
	}
	return records, failures
}

// merge writes one filing's rows into rec. Target years outside the request
// or already resolved are skipped.
func (b *BatchCollector) merge(rec *models.CompanyRecord, resolved, requested map[int]bool, reportingYear int, rows []ingest.AccountRow) {
	idx := statement.Build(lineItems(rows), true, b.aliases)
	rcept := receiptOf(rows)

	for _, po := range periodOffsets {
		target := reportingYear + po.offset
		if !requested[target] || resolved[target] {
			continue
		}
		y := &models.YearlyRecord{Year: target}
		if statement.Populate(y, idx, po.period) == 0 {
			continue
		}
		dst := rec.EnsureYear(target)
		y.RceptNo = dst.RceptNo
		*dst = *y
		resolved[target] = true
	}

	if requested[reportingYear] && rcept != "" {
		if y := rec.EnsureYear(reportingYear); y.RceptNo == "" {
			y.RceptNo = rcept
		}
	}
	rec.SetLatestReport(rcept, reportingYear)
}

func groupByCorp(rows []ingest.AccountRow) map[string][]ingest.AccountRow {
	out := make(map[string][]ingest.AccountRow)
	for _, r := range rows {
		out[r.CorpCode] = append(out[r.CorpCode], r)
	}
	return out
}
