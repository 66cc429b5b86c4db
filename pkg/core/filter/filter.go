// Package filter evaluates long-term investment screens over the most recent
// years of a company. Every screen fails closed when there is no yearly data.
package filter

import (
	"strings"

	"gonum.org/v1/gonum/stat"

	"dart_screener/pkg/core/calc"
	"dart_screener/pkg/models"
)

// WindowYears is the number of most recent years a screen looks at.
const WindowYears = 5

const (
	MinOperatingMargin = 0.10
	MinRevenueCAGR     = 0.0
)

// financialPrefixes are the KSIC industry code prefixes of banks, insurers
// and other financial businesses, whose revenue lines are not comparable.
var financialPrefixes = []string{"641", "642", "649", "651", "652", "653", "661", "662"}

// IsFinancialIndustry reports whether an industry code is in the financial allowlist.
func IsFinancialIndustry(industryCode string) bool {
	code := strings.TrimSpace(industryCode)
	for _, p := range financialPrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// OperatingIncome passes when at most one checked year has operating income <= 0.
// Years without a figure are not checked.
func OperatingIncome(rec *models.CompanyRecord) bool {
	checked, nonPositive := 0, 0
	for _, y := range rec.Window(WindowYears) {
		if y.OperatingIncome == nil {
			continue
		}
		checked++
		if *y.OperatingIncome <= 0 {
			nonPositive++
		}
	}
	return checked > 0 && nonPositive <= 1
}

// NetIncome passes when the window's net income sums to more than zero.
func NetIncome(rec *models.CompanyRecord) bool {
	var sum int64
	seen := false
	for _, y := range rec.Window(WindowYears) {
		if y.NetIncome == nil {
			continue
		}
		sum += *y.NetIncome
		seen = true
	}
	return seen && sum > 0
}

// RevenueCAGR passes when revenue grew (CAGR >= 0) from the first to the last
// year in the window with positive revenue. Financial companies pass, and so
// does a window with fewer than two such years.
func RevenueCAGR(rec *models.CompanyRecord) bool {
	if len(rec.Yearly) == 0 {
		return false
	}
	if IsFinancialIndustry(rec.IndustryCode) {
		return true
	}

	var first, last *models.YearlyRecord
	for _, y := range rec.Window(WindowYears) {
		if y.Revenue == nil || *y.Revenue <= 0 {
			continue
		}
		if first == nil {
			first = y
		}
		last = y
	}
	if first == nil || first == last {
		return true
	}
	g := calc.CAGR(float64(*first.Revenue), float64(*last.Revenue), float64(last.Year-first.Year))
	return g >= MinRevenueCAGR
}

// OperatingMargin passes when the window's mean operating margin is at least 10%.
func OperatingMargin(rec *models.CompanyRecord) bool {
	var margins []float64
	for _, y := range rec.Window(WindowYears) {
		if y.OperatingMargin != nil {
			margins = append(margins, *y.OperatingMargin)
		}
	}
	if len(margins) == 0 {
		return false
	}
	return stat.Mean(margins, nil) >= MinOperatingMargin
}

// ROE passes when the window's mean ROE meets the threshold of the company's
// size class. Years with non-positive equity are left out.
func ROE(rec *models.CompanyRecord) bool {
	size, ok := SizeOf(rec)
	if !ok {
		return false
	}
	var roes []float64
	for _, y := range rec.Window(WindowYears) {
		if y.TotalEquity == nil || *y.TotalEquity <= 0 || y.ROE == nil {
			continue
		}
		roes = append(roes, *y.ROE)
	}
	if len(roes) == 0 {
		return false
	}
	return stat.Mean(roes, nil) >= size.MinROE()
}

// Apply evaluates every screen and stores the outcome on rec.
func Apply(rec *models.CompanyRecord) models.FilterOutcome {
	out := models.FilterOutcome{
		OperatingIncome: OperatingIncome(rec),
		NetIncome:       NetIncome(rec),
		RevenueCAGR:     RevenueCAGR(rec),
		OperatingMargin: OperatingMargin(rec),
		ROE:             ROE(rec),
	}
	out.PassedAll = out.OperatingIncome && out.NetIncome && out.RevenueCAGR && out.OperatingMargin && out.ROE
	rec.Filters = out
	return out
}
