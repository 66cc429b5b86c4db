package calc

// WACCInput parameters for calculating the cost of capital. Rates in percent
// points as published (3.5 = 3.5%); TaxRate is a fraction.
type WACCInput struct {
	Equity            float64
	InterestBearing   float64 // D
	InterestExpense   float64
	BondYield         float64 // risk-free proxy, percent
	EquityRiskPremium float64 // percent
	TaxRate           float64
}

// WACCResult holds the calculated rates as fractions.
type WACCResult struct {
	CostOfEquity float64
	CostOfDebt   float64 // pre-tax
	WeightEquity float64
	WeightDebt   float64
	WACC         float64
}

// CalculateWACC computes
//
//	WACC = E/(E+D) * Re + D/(E+D) * Rd * (1 - t)
//	Re   = (bondYield + equityRiskPremium) / 100
//	Rd   = interestExpense / D, 0 when D is 0
//
// ok is false when E+D is 0; the result is then all zeros.
func CalculateWACC(input WACCInput) (WACCResult, bool) {
	capital := input.Equity + input.InterestBearing
	if capital == 0 {
		return WACCResult{}, false
	}

	ke := (input.BondYield + input.EquityRiskPremium) / 100
	var kd float64
	if input.InterestBearing != 0 {
		kd = input.InterestExpense / input.InterestBearing
	}
	we := input.Equity / capital
	wd := input.InterestBearing / capital

	return WACCResult{
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WeightEquity: we,
		WeightDebt:   wd,
		WACC:         we*ke + wd*kd*(1-input.TaxRate),
	}, true
}
