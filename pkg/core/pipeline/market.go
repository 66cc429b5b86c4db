package pipeline

import (
	"context"

	"dart_screener/pkg/core/calc"
)

// marketParams builds the calculator inputs shared by every company of a run.
// Without a bond yield WACC stays unknown.
func (o *Orchestrator) marketParams(ctx context.Context) calc.Params {
	p := calc.Params{TaxRate: o.opts.TaxRate, EquityRiskPremium: o.opts.EquityRiskPremium}
	if y, ok := o.bondYield(ctx); ok {
		p.BondYield = &y
	}
	return p
}

// bondYield serves the cached yield while it is fresh, otherwise asks ECOS
// and refreshes the cache. A stale cached value beats none.
func (o *Orchestrator) bondYield(ctx context.Context) (float64, bool) {
	now := o.now()
	var (
		cached    float64
		haveStale bool
	)
	if o.repo != nil {
		y, at, ok, err := o.repo.LoadBondYield(ctx)
		switch {
		case err != nil:
			o.log.Warn().Err(err).Msg("bond yield cache unavailable")
		case ok && y > 0 && now.Sub(at) < BondYieldMaxAge:
			return y, true
		case ok && y > 0:
			cached, haveStale = y, true
		}
	}

	if o.bonds == nil {
		return cached, haveStale
	}
	y, ok, err := o.bonds.BondYield5Y(ctx, now)
	if err != nil || !ok {
		o.log.Warn().Err(err).Bool("stale_cache", haveStale).Msg("bond yield not available from ECOS")
		return cached, haveStale
	}
	if o.repo != nil {
		if err := o.repo.SaveBondYield(ctx, y, now); err != nil {
			o.log.Warn().Err(err).Msg("failed to cache bond yield")
		}
	}
	return y, true
}

// flushStats adds the calls made since the last flush to the daily totals.
// A failed write is logged and retried on the next flush.
func (o *Orchestrator) flushStats(ctx context.Context) {
	if o.repo == nil {
		return
	}
	dart := o.dart.Stats().Total
	var ecos int64
	if o.bonds != nil {
		ecos = o.bonds.Stats().Total
	}
	dDART, dECOS := dart-o.flushedDART, ecos-o.flushedECOS
	if err := o.repo.RecordAPICalls(ctx, o.now(), dDART, dECOS); err != nil {
		o.log.Warn().Err(err).Int64("dart", dDART).Int64("ecos", dECOS).Msg("failed to record api calls")
		return
	}
	o.flushedDART, o.flushedECOS = dart, ecos
}
