// Package pipeline runs the screening flow end to end: resolve stock codes,
// collect statements, enrich from XBRL, compute indicators, filter and save.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dart_screener/pkg/core/calc"
	"dart_screener/pkg/core/collect"
	"dart_screener/pkg/core/filter"
	"dart_screener/pkg/core/ingest"
	"dart_screener/pkg/core/store"
	"dart_screener/pkg/core/xbrl"
	"dart_screener/pkg/models"
)

// DARTSource is everything the orchestrator calls on the DART API.
type DARTSource interface {
	collect.AccountSource
	collect.DocumentSource
	LookupStock(ctx context.Context, stockCode string) (ingest.CorpEntry, bool, error)
	Stats() ingest.StatsSnapshot
}

// BondYieldSource supplies the 5-year treasury yield in percent.
type BondYieldSource interface {
	BondYield5Y(ctx context.Context, now time.Time) (float64, bool, error)
	Stats() ingest.StatsSnapshot
}

// Repository persists records and the side tables the pipeline maintains.
type Repository interface {
	store.CompanyStore
	RecordAPICalls(ctx context.Context, day time.Time, dart, ecos int64) error
	LoadBondYield(ctx context.Context) (float64, time.Time, bool, error)
	SaveBondYield(ctx context.Context, yield float64, at time.Time) error
}

var (
	_ DARTSource      = (*ingest.DARTClient)(nil)
	_ BondYieldSource = (*ingest.ECOSClient)(nil)
	_ Repository      = (*store.PGStore)(nil)
)

// BondYieldMaxAge is how long a cached bond yield is reused.
const BondYieldMaxAge = 24 * time.Hour

// Status of one company in a run.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "not_found"
)

// ErrNoData means no statement figures were collected for a company.
var ErrNoData = errors.New("no financial data collected")

// RunResult is the outcome for one requested company.
type RunResult struct {
	RunID     string
	StockCode string
	CorpCode  string
	Name      string
	Status    Status
	Passed    bool
	Err       error
	Failures  []collect.Failure // isolated per-year or per-report failures
}

// Options tune the orchestrator. Zero values take the calc defaults.
type Options struct {
	TaxRate           float64 // fraction
	EquityRiskPremium float64 // percent
	XBRLWorkers       int
	XBRLIndexer       xbrl.FactIndexer // nil keeps the regex scanner
	SkipXBRL          bool
}

// Orchestrator wires the collectors, the calculator, the filters and the
// repository. It is not safe for concurrent runs.
type Orchestrator struct {
	dart  DARTSource
	bonds BondYieldSource
	repo  Repository

	single *collect.Collector
	batch  *collect.BatchCollector
	enrich *collect.XBRLEnricher

	opts Options
	now  func() time.Time
	log  zerolog.Logger

	flushedDART int64
	flushedECOS int64
}

// NewOrchestrator creates an orchestrator over a DART source. Bond yields and
// persistence are optional; see SetBondYieldSource and SetRepository.
func NewOrchestrator(dart DARTSource, opts Options, log zerolog.Logger) *Orchestrator {
	if opts.TaxRate == 0 {
		opts.TaxRate = calc.DefaultTaxRate
	}
	if opts.EquityRiskPremium == 0 {
		opts.EquityRiskPremium = calc.DefaultEquityRiskPremium
	}
	enricher := collect.NewXBRLEnricher(dart, opts.XBRLWorkers, log)
	if opts.XBRLIndexer != nil {
		enricher.SetIndexer(opts.XBRLIndexer)
	}
	return &Orchestrator{
		dart:   dart,
		single: collect.NewCollector(dart, nil, log),
		batch:  collect.NewBatchCollector(dart, nil, log),
		enrich: enricher,
		opts:   opts,
		now:    time.Now,
		log:    log.With().Str("component", "orchestrator").Logger(),
	}
}

// SetBondYieldSource enables WACC with ECOS yields.
func (o *Orchestrator) SetBondYieldSource(src BondYieldSource) {
	o.bonds = src
}

// SetRepository enables saving, the bond yield cache and call stats.
func (o *Orchestrator) SetRepository(repo Repository) {
	o.repo = repo
}

// RecentYears returns the n fiscal years ending with the year before now,
// oldest first.
func RecentYears(now time.Time, n int) []int {
	years := make([]int, n)
	last := now.Year() - 1
	for i := range years {
		years[i] = last - n + 1 + i
	}
	return years
}

// RunBatch screens every stock code. Unknown codes are reported as
// not_found; every other company gets its own result, and one company's
// failure never stops the others.
func (o *Orchestrator) RunBatch(ctx context.Context, stockCodes []string, years []int) []RunResult {
	runID := uuid.NewString()
	log := o.log.With().Str("run_id", runID).Logger()
	start := o.now()
	log.Info().Int("stock_codes", len(stockCodes)).Ints("years", years).Msg("batch started")

	results := make([]RunResult, 0, len(stockCodes))
	entries := make(map[string]ingest.CorpEntry)
	slot := make(map[string]int) // corp code -> index in results
	var corpCodes []string
	for _, code := range stockCodes {
		res := RunResult{RunID: runID, StockCode: code}
		entry, ok, err := o.dart.LookupStock(ctx, code)
		switch {
		case err != nil:
			res.Status, res.Err = StatusFailed, fmt.Errorf("resolve %s: %w", code, err)
		case !ok:
			res.Status = StatusNotFound
		default:
			if _, dup := entries[entry.CorpCode]; dup {
				continue
			}
			entries[entry.CorpCode] = entry
			slot[entry.CorpCode] = len(results)
			corpCodes = append(corpCodes, entry.CorpCode)
		}
		results = append(results, res)
	}

	records, failures := o.batch.CollectMany(ctx, corpCodes, years)
	if !o.opts.SkipXBRL {
		failures = append(failures, o.enrich.Enrich(ctx, records)...)
	}
	byCorp := make(map[string][]collect.Failure)
	for _, f := range failures {
		byCorp[f.CorpCode] = append(byCorp[f.CorpCode], f)
	}

	params := o.marketParams(ctx)
	for _, id := range corpCodes {
		entry := entries[id]
		rec := records[id]
		rec.StockCode = entry.StockCode
		rec.Name = entry.CorpName
		fails := byCorp[id]
		if f := o.fillCompanyInfo(ctx, rec); f != nil {
			fails = append(fails, *f)
		}
		res := o.finish(ctx, rec, params, fails)
		res.RunID = runID
		res.StockCode = results[slot[id]].StockCode
		results[slot[id]] = res
	}

	o.flushStats(ctx)
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	log.Info().
		Int("companies", len(corpCodes)).
		Int("passed", passed).
		Dur("elapsed", o.now().Sub(start)).
		Msg("batch finished")
	return results
}

// CollectOne screens a single company with per-year single-company calls.
func (o *Orchestrator) CollectOne(ctx context.Context, corpCode string, years []int) (RunResult, *models.CompanyRecord) {
	rec, fails, err := o.single.CollectCompany(ctx, corpCode, years)
	if err != nil {
		status := StatusFailed
		if errors.Is(err, collect.ErrCompanyNotFound) {
			status = StatusNotFound
		}
		o.flushStats(ctx)
		return RunResult{CorpCode: corpCode, Status: status, Err: err}, nil
	}
	if !o.opts.SkipXBRL {
		fails = append(fails, o.enrich.Enrich(ctx, map[string]*models.CompanyRecord{corpCode: rec})...)
	}
	res := o.finish(ctx, rec, o.marketParams(ctx), fails)
	res.StockCode = rec.StockCode
	o.flushStats(ctx)
	return res, rec
}

// finish computes, filters and saves one collected record.
func (o *Orchestrator) finish(ctx context.Context, rec *models.CompanyRecord, params calc.Params, fails []collect.Failure) RunResult {
	res := RunResult{CorpCode: rec.CorpCode, Name: rec.Name, Failures: fails}
	if !hasFigures(rec) {
		res.Status, res.Err = StatusFailed, ErrNoData
		if len(fails) > 0 {
			res.Err = fmt.Errorf("%w: %d failures, first: %v", ErrNoData, len(fails), fails[0])
		}
		o.log.Warn().Str("corp_code", rec.CorpCode).Err(res.Err).Msg("company skipped")
		return res
	}

	calc.Compute(rec, params, o.log)
	out := filter.Apply(rec)

	if o.repo != nil {
		if err := o.repo.Save(ctx, rec); err != nil {
			res.Status, res.Err = StatusFailed, err
			o.log.Error().Err(err).Str("corp_code", rec.CorpCode).Msg("save failed")
			return res
		}
	}

	res.Status = StatusSuccess
	res.Passed = out.PassedAll
	if out.PassedAll {
		o.log.Info().Str("corp_code", rec.CorpCode).Str("name", rec.Name).Msg("passed all filters")
	}
	return res
}

// fillCompanyInfo sets the industry code, which the batch endpoint does not
// return: from the stored record when it has one, else from company.json.
func (o *Orchestrator) fillCompanyInfo(ctx context.Context, rec *models.CompanyRecord) *collect.Failure {
	if o.repo != nil {
		if stored, ok, err := o.repo.Load(ctx, rec.CorpCode); err == nil && ok && stored.IndustryCode != "" {
			rec.IndustryCode = stored.IndustryCode
			return nil
		} else if err != nil {
			o.log.Warn().Err(err).Str("corp_code", rec.CorpCode).Msg("load failed, fetching company info")
		}
	}
	info, err := o.dart.FetchCompany(ctx, rec.CorpCode)
	if err != nil {
		o.log.Warn().Err(err).Str("corp_code", rec.CorpCode).Msg("company info unavailable")
		return &collect.Failure{CorpCode: rec.CorpCode, Stage: collect.StageCompany, Err: err}
	}
	if info != nil {
		rec.IndustryCode = info.IndustryCode
		if rec.Name == "" {
			rec.Name = info.CorpName
		}
	}
	return nil
}

func hasFigures(rec *models.CompanyRecord) bool {
	for _, y := range rec.Yearly {
		if y.HasStatementFigures() {
			return true
		}
	}
	return false
}
