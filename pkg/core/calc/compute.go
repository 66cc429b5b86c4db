package calc

import (
	"github.com/rs/zerolog"

	"dart_screener/pkg/models"
)

const (
	DefaultTaxRate           = 0.25
	DefaultEquityRiskPremium = 5.0
)

// Params are the market inputs shared by every year of a company.
type Params struct {
	TaxRate           float64  // fraction
	BondYield         *float64 // 5-year treasury yield, percent; nil when unavailable
	EquityRiskPremium float64  // percent
}

// DefaultParams returns the standard tax rate and premium with no bond yield.
func DefaultParams() Params {
	return Params{TaxRate: DefaultTaxRate, EquityRiskPremium: DefaultEquityRiskPremium}
}

// WACC for one year. Equity must be known and a bond yield available; missing
// debt and interest count as zero. E+D == 0 gives 0.
func WACC(y *models.YearlyRecord, p Params, log zerolog.Logger) *float64 {
	if y.TotalEquity == nil || p.BondYield == nil {
		return nil
	}
	res, ok := CalculateWACC(WACCInput{
		Equity:            float64(*y.TotalEquity),
		InterestBearing:   float64(value(y.InterestBearingDebt)),
		InterestExpense:   float64(value(y.InterestExpense)),
		BondYield:         *p.BondYield,
		EquityRiskPremium: p.EquityRiskPremium,
		TaxRate:           p.TaxRate,
	})
	if !ok {
		log.Warn().Int("year", y.Year).Msg("WACC: equity plus debt is 0, using 0")
		return models.Float64(0)
	}
	if res.CostOfDebt == 0 && value(y.InterestBearingDebt) == 0 {
		log.Debug().Int("year", y.Year).Msg("WACC: no interest-bearing debt, cost of debt is 0")
	}
	return models.Float64(res.WACC)
}

// Compute fills the derived fields of every yearly record in place.
func Compute(rec *models.CompanyRecord, p Params, log zerolog.Logger) {
	log = log.With().Str("corp_code", rec.CorpCode).Logger()
	for _, y := range rec.Yearly {
		y.FCF = FCF(y)
		y.ROIC = ROIC(y, p.TaxRate, log)
		y.WACC = WACC(y, p, log)
		y.OperatingMargin = OperatingMargin(y)
		y.ROE = ROE(y)
		y.DebtRatio = DebtRatio(y)
	}
}
