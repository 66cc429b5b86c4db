package models

import (
	"sort"
	"time"
)

// YearlyRecord holds one fiscal year of figures for one company.
// Amounts are in won. A nil field means the source had no matching account;
// it is never the same thing as zero.
type YearlyRecord struct {
	Year int `json:"year"`

	Revenue         *int64 `json:"revenue"`
	OperatingIncome *int64 `json:"operating_income"`
	NetIncome       *int64 `json:"net_income"`
	TotalAssets     *int64 `json:"total_assets"`
	TotalEquity     *int64 `json:"total_equity"`

	InterestBearingDebt        *int64 `json:"interest_bearing_debt"`
	CashAndCashEquivalents     *int64 `json:"cash_and_cash_equivalents"`
	InterestExpense            *int64 `json:"interest_expense"`
	CFO                        *int64 `json:"cfo"`
	TangibleAssetAcquisition   *int64 `json:"tangible_asset_acquisition"`
	IntangibleAssetAcquisition *int64 `json:"intangible_asset_acquisition"`

	RceptNo string `json:"rcept_no,omitempty"` // annual report receipt that reported this year as current

	// Derived (filled by calc.Compute)
	OperatingMargin *float64 `json:"operating_margin"`
	ROE             *float64 `json:"roe"`
	FCF             *int64   `json:"fcf"`
	ROIC            *float64 `json:"roic"`
	WACC            *float64 `json:"wacc"`
	DebtRatio       *float64 `json:"debt_ratio"`
}

// HasStatementFigures reports whether any statement-sourced figure is set.
func (y *YearlyRecord) HasStatementFigures() bool {
	return y.Revenue != nil || y.OperatingIncome != nil || y.NetIncome != nil ||
		y.TotalAssets != nil || y.TotalEquity != nil || y.CFO != nil
}

// FilterOutcome holds the per-filter pass/fail flags of a company.
type FilterOutcome struct {
	OperatingIncome bool `json:"filter_operating_income"`
	NetIncome       bool `json:"filter_net_income"`
	RevenueCAGR     bool `json:"filter_revenue_cagr"`
	OperatingMargin bool `json:"filter_operating_margin"`
	ROE             bool `json:"filter_roe"`
	PassedAll       bool `json:"passed_all_filters"`
}

// CompanyRecord is one company with its yearly figures, ordered by year ascending.
type CompanyRecord struct {
	CorpCode     string `json:"corp_code"` // 8-digit DART identifier
	Name         string `json:"name"`
	StockCode    string `json:"stock_code,omitempty"`
	IndustryCode string `json:"industry_code,omitempty"`

	Yearly []*YearlyRecord `json:"yearly_data"`

	LatestReportID   string `json:"latest_rcept_no,omitempty"`
	LatestReportYear int    `json:"latest_report_year,omitempty"`

	Filters   FilterOutcome `json:"filters"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewCompanyRecord returns an empty record for corpCode.
func NewCompanyRecord(corpCode string) *CompanyRecord {
	return &CompanyRecord{CorpCode: corpCode}
}

// Year returns the record for year, or nil.
func (c *CompanyRecord) Year(year int) *YearlyRecord {
	for _, y := range c.Yearly {
		if y.Year == year {
			return y
		}
	}
	return nil
}

// EnsureYear returns the record for year, inserting an empty one in order if missing.
func (c *CompanyRecord) EnsureYear(year int) *YearlyRecord {
	if y := c.Year(year); y != nil {
		return y
	}
	y := &YearlyRecord{Year: year}
	c.Yearly = append(c.Yearly, y)
	sort.Slice(c.Yearly, func(i, j int) bool { return c.Yearly[i].Year < c.Yearly[j].Year })
	return y
}

// Window returns the most recent n yearly records in ascending year order.
func (c *CompanyRecord) Window(n int) []*YearlyRecord {
	if len(c.Yearly) <= n {
		return c.Yearly
	}
	return c.Yearly[len(c.Yearly)-n:]
}

// SetLatestReport keeps the receipt of the most recent reporting year seen.
func (c *CompanyRecord) SetLatestReport(rceptNo string, year int) {
	if rceptNo == "" {
		return
	}
	if c.LatestReportID == "" || year > c.LatestReportYear {
		c.LatestReportID = rceptNo
		c.LatestReportYear = year
	}
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
