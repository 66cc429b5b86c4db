// Package store persists company records, API call counts and the bond
// yield cache in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"dart_screener/pkg/models"
)

const (
	tableCompanies = "companies"
	tableYearly    = "yearly_financials"
	tableAPICalls  = "api_call_stats"
	tableBondYield = "bond_yield_cache"
)

// CompanyStore loads and saves company records. Save is an idempotent upsert
// of the company and each of its years by (corp_code, year).
type CompanyStore interface {
	Load(ctx context.Context, corpCode string) (*models.CompanyRecord, bool, error)
	Save(ctx context.Context, rec *models.CompanyRecord) error
}

var (
	companyColumns = []string{
		"corp_code", "name", "stock_code", "industry_code",
		"latest_rcept_no", "latest_report_year",
		"filter_operating_income", "filter_net_income", "filter_revenue_cagr",
		"filter_operating_margin", "filter_roe", "passed_all_filters",
		"updated_at",
	}
	yearlyColumns = []string{
		"corp_code", "year",
		"revenue", "operating_income", "net_income", "total_assets", "total_equity",
		"interest_bearing_debt", "cash_and_cash_equivalents", "interest_expense", "cfo",
		"tangible_asset_acquisition", "intangible_asset_acquisition",
		"rcept_no",
		"operating_margin", "roe", "fcf", "roic", "wacc", "debt_ratio",
	}
)

// PGStore is the Postgres CompanyStore.
type PGStore struct {
	db  DB
	now func() time.Time
}

var _ CompanyStore = (*PGStore)(nil)

// NewPGStore wraps db (normally a *pgxpool.Pool).
func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

// EnsureSchema creates missing tables.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// upsertSuffix builds ON CONFLICT ... DO UPDATE for every non-key column.
func upsertSuffix(conflict []string, columns []string) string {
	key := make(map[string]bool, len(conflict))
	for _, c := range conflict {
		key[c] = true
	}
	var sets []string
	for _, c := range columns {
		if !key[c] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(sets, ", "))
}

func saveCompanyQuery(rec *models.CompanyRecord, at time.Time) squirrel.InsertBuilder {
	f := rec.Filters
	return builder().Insert(tableCompanies).
		Columns(companyColumns...).
		Values(
			rec.CorpCode, rec.Name, rec.StockCode, rec.IndustryCode,
			rec.LatestReportID, rec.LatestReportYear,
			f.OperatingIncome, f.NetIncome, f.RevenueCAGR,
			f.OperatingMargin, f.ROE, f.PassedAll,
			at,
		).
		Suffix(upsertSuffix([]string{"corp_code"}, companyColumns))
}

func saveYearlyQuery(rec *models.CompanyRecord) squirrel.InsertBuilder {
	q := builder().Insert(tableYearly).Columns(yearlyColumns...)
	for _, y := range rec.Yearly {
		q = q.Values(
			rec.CorpCode, y.Year,
			y.Revenue, y.OperatingIncome, y.NetIncome, y.TotalAssets, y.TotalEquity,
			y.InterestBearingDebt, y.CashAndCashEquivalents, y.InterestExpense, y.CFO,
			y.TangibleAssetAcquisition, y.IntangibleAssetAcquisition,
			y.RceptNo,
			y.OperatingMargin, y.ROE, y.FCF, y.ROIC, y.WACC, y.DebtRatio,
		)
	}
	return q.Suffix(upsertSuffix([]string{"corp_code", "year"}, yearlyColumns))
}

// Save upserts rec and all of its years in one transaction.
func (s *PGStore) Save(ctx context.Context, rec *models.CompanyRecord) error {
	at := s.now().UTC()
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := execQuery(ctx, tx, saveCompanyQuery(rec, at)); err != nil {
			return fmt.Errorf("company: %w", err)
		}
		if len(rec.Yearly) == 0 {
			return nil
		}
		if err := execQuery(ctx, tx, saveYearlyQuery(rec)); err != nil {
			return fmt.Errorf("yearly: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", rec.CorpCode, err)
	}
	rec.UpdatedAt = at
	return nil
}

// Load returns the stored record for corpCode; ok is false when there is none.
func (s *PGStore) Load(ctx context.Context, corpCode string) (*models.CompanyRecord, bool, error) {
	sql, args, err := builder().Select(companyColumns...).
		From(tableCompanies).
		Where(squirrel.Eq{"corp_code": corpCode}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build query: %w", err)
	}

	rec := &models.CompanyRecord{}
	f := &rec.Filters
	err = s.db.QueryRow(ctx, sql, args...).Scan(
		&rec.CorpCode, &rec.Name, &rec.StockCode, &rec.IndustryCode,
		&rec.LatestReportID, &rec.LatestReportYear,
		&f.OperatingIncome, &f.NetIncome, &f.RevenueCAGR,
		&f.OperatingMargin, &f.ROE, &f.PassedAll,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", corpCode, err)
	}

	years, err := s.loadYearly(ctx, corpCode)
	if err != nil {
		return nil, false, err
	}
	rec.Yearly = years
	return rec, true, nil
}

func (s *PGStore) loadYearly(ctx context.Context, corpCode string) ([]*models.YearlyRecord, error) {
	sql, args, err := builder().Select(yearlyColumns[1:]...).
		From(tableYearly).
		Where(squirrel.Eq{"corp_code": corpCode}).
		OrderBy("year").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load years of %s: %w", corpCode, err)
	}
	defer rows.Close()

	var out []*models.YearlyRecord
	for rows.Next() {
		y := &models.YearlyRecord{}
		if err := rows.Scan(
			&y.Year,
			&y.Revenue, &y.OperatingIncome, &y.NetIncome, &y.TotalAssets, &y.TotalEquity,
			&y.InterestBearingDebt, &y.CashAndCashEquivalents, &y.InterestExpense, &y.CFO,
			&y.TangibleAssetAcquisition, &y.IntangibleAssetAcquisition,
			&y.RceptNo,
			&y.OperatingMargin, &y.ROE, &y.FCF, &y.ROIC, &y.WACC, &y.DebtRatio,
		); err != nil {
			return nil, fmt.Errorf("failed to scan year of %s: %w", corpCode, err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
