package paste

import (
	"context"
	"fmt"
	"strings"

	"dart_screener/pkg/core/statement"
)

// Result is the outcome of parsing a balance sheet and cash flow paste pair.
type Result struct {
	BalanceSheet *Statement
	CashFlow     *Statement
	Figures      Figures
}

// Rows returns all parsed rows, balance sheet first: the JSON hand-off array.
func (r *Result) Rows() []Row {
	var out []Row
	for _, st := range []*Statement{r.BalanceSheet, r.CashFlow} {
		if st != nil {
			out = append(out, st.Rows...)
		}
	}
	return out
}

// Process parses both pastes, maps their rows and merges the figures. An
// empty paste is skipped; both empty is an error.
func Process(ctx context.Context, balanceSheet, cashFlow string, mapper RowMapper) (*Result, error) {
	if strings.TrimSpace(balanceSheet) == "" && strings.TrimSpace(cashFlow) == "" {
		return nil, fmt.Errorf("nothing to parse: both pastes are empty")
	}
	if mapper == nil {
		mapper = AliasMapper{}
	}

	res := &Result{}
	bs, bsFigures, err := processOne(ctx, balanceSheet, BalanceSheetMarker, BalanceSheetMapping(), mapper)
	if err != nil {
		return nil, fmt.Errorf("balance sheet: %w", err)
	}
	cf, cfFigures, err := processOne(ctx, cashFlow, CashFlowMarker, CashFlowMapping(), mapper)
	if err != nil {
		return nil, fmt.Errorf("cash flow: %w", err)
	}
	res.BalanceSheet, res.CashFlow = bs, cf
	res.Figures = Merge(bsFigures, cfFigures)
	return res, nil
}

func processOne(ctx context.Context, text string, marker Marker, table *statement.AliasTable, mapper RowMapper) (*Statement, Figures, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Figures{}, nil
	}
	if LooksLikeHTML(text) {
		flat, err := FlattenHTML(text)
		if err != nil {
			return nil, nil, err
		}
		text = flat
	}

	st, err := ParseStatement(text, marker)
	if err != nil {
		return nil, nil, err
	}
	mapping, err := mapper.MapRows(ctx, st, table)
	if err != nil {
		return nil, nil, err
	}
	return st, Extract(st, mapping), nil
}
