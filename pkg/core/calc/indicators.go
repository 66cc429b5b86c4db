// Package calc provides deterministic financial calculations over normalized
// yearly records. Nothing here does I/O; a degenerate denominator resolves to
// a defined fallback and a log line, never an error.
package calc

import (
	"math"

	"github.com/rs/zerolog"

	"dart_screener/pkg/models"
)

// =============================================================================
// GROWTH
// =============================================================================

// CAGR is (end/start)^(1/years) - 1, or 0 when start <= 0, end < 0 or
// years <= 0.
func CAGR(start, end, years float64) float64 {
	if start <= 0 || end < 0 || years <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/years) - 1
}

// =============================================================================
// CASH FLOW & RETURNS
// =============================================================================

// FCF = cfo - |tangible + intangible acquisitions|. Missing acquisitions count
// as zero; a missing cfo leaves FCF unknown.
func FCF(y *models.YearlyRecord) *int64 {
	if y.CFO == nil {
		return nil
	}
	capex := value(y.TangibleAssetAcquisition) + value(y.IntangibleAssetAcquisition)
	if capex < 0 {
		capex = -capex
	}
	return models.Int64(*y.CFO - capex)
}

// ROIC = operatingIncome*(1-taxRate) / (equity + interestBearingDebt - cash).
// Missing debt or cash count as zero. A non-positive invested capital gives 0.
func ROIC(y *models.YearlyRecord, taxRate float64, log zerolog.Logger) *float64 {
	if y.OperatingIncome == nil || y.TotalEquity == nil {
		return nil
	}
	invested := float64(*y.TotalEquity) + float64(value(y.InterestBearingDebt)) - float64(value(y.CashAndCashEquivalents))
	if invested <= 0 {
		log.Warn().
			Int("year", y.Year).
			Int64("equity", *y.TotalEquity).
			Int64("interest_bearing_debt", value(y.InterestBearingDebt)).
			Int64("cash", value(y.CashAndCashEquivalents)).
			Msg("ROIC: invested capital is not positive, using 0")
		return models.Float64(0)
	}
	return models.Float64(float64(*y.OperatingIncome) * (1 - taxRate) / invested)
}

// =============================================================================
// MARGINS & RATIOS
// =============================================================================

// OperatingMargin = operatingIncome/revenue; unknown when revenue <= 0.
func OperatingMargin(y *models.YearlyRecord) *float64 {
	if y.OperatingIncome == nil || y.Revenue == nil || *y.Revenue <= 0 {
		return nil
	}
	return models.Float64(float64(*y.OperatingIncome) / float64(*y.Revenue))
}

// ROE = netIncome/equity; unknown when equity <= 0.
func ROE(y *models.YearlyRecord) *float64 {
	if y.NetIncome == nil || y.TotalEquity == nil || *y.TotalEquity <= 0 {
		return nil
	}
	return models.Float64(float64(*y.NetIncome) / float64(*y.TotalEquity))
}

// DebtRatio = interestBearingDebt/equity; unknown when equity <= 0.
func DebtRatio(y *models.YearlyRecord) *float64 {
	if y.InterestBearingDebt == nil || y.TotalEquity == nil || *y.TotalEquity <= 0 {
		return nil
	}
	return models.Float64(float64(*y.InterestBearingDebt) / float64(*y.TotalEquity))
}

func value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
