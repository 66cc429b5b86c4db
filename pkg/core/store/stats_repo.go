package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

func recordCallsQuery(day time.Time, dart, ecos int64) squirrel.InsertBuilder {
	return builder().Insert(tableAPICalls).
		Columns("day", "dart_calls", "ecos_calls").
		Values(day.Format("2006-01-02"), dart, ecos).
		Suffix("ON CONFLICT (day) DO UPDATE SET " +
			"dart_calls = api_call_stats.dart_calls + EXCLUDED.dart_calls, " +
			"ecos_calls = api_call_stats.ecos_calls + EXCLUDED.ecos_calls")
}

// RecordAPICalls adds the day's DART and ECOS call counts to the stored totals.
func (s *PGStore) RecordAPICalls(ctx context.Context, day time.Time, dart, ecos int64) error {
	if dart == 0 && ecos == 0 {
		return nil
	}
	if err := execQuery(ctx, s.db, recordCallsQuery(day, dart, ecos)); err != nil {
		return fmt.Errorf("failed to record api calls: %w", err)
	}
	return nil
}

func saveBondYieldQuery(yield float64, at time.Time) squirrel.InsertBuilder {
	return builder().Insert(tableBondYield).
		Columns("id", "yield_5y", "fetched_at").
		Values(1, yield, at).
		Suffix("ON CONFLICT (id) DO UPDATE SET yield_5y = EXCLUDED.yield_5y, fetched_at = EXCLUDED.fetched_at")
}

// SaveBondYield replaces the cached 5-year treasury yield.
func (s *PGStore) SaveBondYield(ctx context.Context, yield float64, at time.Time) error {
	if err := execQuery(ctx, s.db, saveBondYieldQuery(yield, at)); err != nil {
		return fmt.Errorf("failed to save bond yield: %w", err)
	}
	return nil
}

// LoadBondYield returns the cached yield and when it was fetched.
func (s *PGStore) LoadBondYield(ctx context.Context) (float64, time.Time, bool, error) {
	sql, args, err := builder().Select("yield_5y", "fetched_at").
		From(tableBondYield).
		Where(squirrel.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to build query: %w", err)
	}
	var (
		yield float64
		at    time.Time
	)
	err = s.db.QueryRow(ctx, sql, args...).Scan(&yield, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to load bond yield: %w", err)
	}
	return yield, at, true, nil
}
