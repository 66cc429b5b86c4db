package collect

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dart_screener/pkg/core/xbrl"
	"dart_screener/pkg/models"
)

// DefaultXBRLWorkers bounds concurrent document downloads.
const DefaultXBRLWorkers = 9

// XBRLEnricher fills cash-flow, cash, interest and debt figures from the
// annual-report archive of every (company, year) that has a receipt number.
type XBRLEnricher struct {
	docs       DocumentSource
	finder     ReportFinder // nil unless docs implements it
	indexer    xbrl.FactIndexer
	indicators *xbrl.IndicatorTable
	workers    int
	log        zerolog.Logger
}

// NewXBRLEnricher creates an enricher with the regex scanner and the embedded
// indicator table. workers <= 0 uses DefaultXBRLWorkers.
func NewXBRLEnricher(docs DocumentSource, workers int, log zerolog.Logger) *XBRLEnricher {
	if workers <= 0 {
		workers = DefaultXBRLWorkers
	}
	finder, _ := docs.(ReportFinder)
	return &XBRLEnricher{
		docs:       docs,
		finder:     finder,
		indexer:    xbrl.ScanIndexer{},
		indicators: xbrl.DefaultIndicators(),
		workers:    workers,
		log:        log.With().Str("component", "xbrl_enricher").Logger(),
	}
}

// SetIndexer swaps the fact indexer (e.g. xbrl.StreamIndexer).
func (e *XBRLEnricher) SetIndexer(indexer xbrl.FactIndexer) {
	e.indexer = indexer
}

type reportTask struct {
	rec     *models.CompanyRecord
	year    int
	rceptNo string
}

// Enrich downloads and indexes every report in a bounded pool. Results are
// applied after the pool drains, so records are only written by the caller's
// goroutine. A report that fails contributes nothing and is returned as a
// Failure.
func (e *XBRLEnricher) Enrich(ctx context.Context, records map[string]*models.CompanyRecord) []Failure {
	tasks := e.tasks(records)
	if len(tasks) == 0 {
		return nil
	}

	facts := make([]xbrl.FactIndex, len(tasks))
	found := make([]string, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, t := range tasks {
		g.Go(func() error {
			rceptNo := t.rceptNo
			if rceptNo == "" {
				no, ok, err := e.finder.FindAnnualReport(ctx, t.rec.CorpCode, t.year)
				if err != nil || !ok {
					errs[i] = err
					return nil
				}
				rceptNo, found[i] = no, no
			}
			facts[i], errs[i] = e.indexReport(ctx, rceptNo)
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for i, t := range tasks {
		rceptNo := t.rceptNo
		if found[i] != "" {
			rceptNo = found[i]
			t.rec.Year(t.year).RceptNo = rceptNo
		}
		if errs[i] != nil {
			e.log.Warn().Err(errs[i]).
				Str("corp_code", t.rec.CorpCode).
				Int("year", t.year).
				Str("rcept_no", rceptNo).
				Msg("report skipped")
			failures = append(failures, Failure{CorpCode: t.rec.CorpCode, Year: t.year, Stage: StageXBRL, Err: errs[i]})
			continue
		}
		if facts[i] == nil {
			e.log.Debug().Str("corp_code", t.rec.CorpCode).Int("year", t.year).Msg("no annual report filed")
			continue
		}
		n := e.indicators.Apply(t.rec.Year(t.year), facts[i])
		e.log.Debug().Str("corp_code", t.rec.CorpCode).Int("year", t.year).Int("indicators", n).Msg("report applied")
	}
	e.log.Info().Int("reports", len(tasks)).Int("failed", len(failures)).Msg("xbrl enrichment finished")
	return failures
}

func (e *XBRLEnricher) indexReport(ctx context.Context, rceptNo string) (xbrl.FactIndex, error) {
	archive, err := e.docs.DownloadDocument(ctx, rceptNo)
	if err != nil {
		return nil, err
	}
	idx, err := xbrl.IndexArchive(archive, e.indexer)
	if err != nil {
		return nil, fmt.Errorf("rcept_no %s: %w", rceptNo, err)
	}
	return idx, nil
}

// tasks lists one task per (company, year, receipt) in corp code and year
// order. With a ReportFinder, years holding figures without a receipt get a
// task with an empty receipt to be looked up.
func (e *XBRLEnricher) tasks(records map[string]*models.CompanyRecord) []reportTask {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var tasks []reportTask
	for _, id := range ids {
		rec := records[id]
		for _, y := range rec.Yearly {
			if y.RceptNo != "" || (e.finder != nil && y.HasStatementFigures()) {
				tasks = append(tasks, reportTask{rec: rec, year: y.Year, rceptNo: y.RceptNo})
			}
		}
	}
	return tasks
}
