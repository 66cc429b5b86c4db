package paste

import (
	_ "embed"
	"sort"

	"dart_screener/pkg/core/statement"
	"dart_screener/pkg/models"
)

var (
	//go:embed mappings/balance_sheet.yaml
	balanceSheetYAML []byte
	//go:embed mappings/cash_flow.yaml
	cashFlowYAML []byte
)

var (
	balanceSheetTable = mustLoadTable(balanceSheetYAML)
	cashFlowTable     = mustLoadTable(cashFlowYAML)
)

func mustLoadTable(data []byte) *statement.AliasTable {
	t, err := statement.LoadAliases(data)
	if err != nil {
		panic("paste: embedded mapping: " + err.Error())
	}
	return t
}

// BalanceSheetMapping maps balance sheet row labels to fields.
func BalanceSheetMapping() *statement.AliasTable { return balanceSheetTable }

// CashFlowMapping maps cash flow row labels to fields.
func CashFlowMapping() *statement.AliasTable { return cashFlowTable }

// Figures holds mapped values by fiscal year.
type Figures map[int]map[models.Field]int64

func (f Figures) set(year int, field models.Field, v int64) {
	m, ok := f[year]
	if !ok {
		m = make(map[models.Field]int64)
		f[year] = m
	}
	m[field] = v
}

// Years returns the covered years, most recent first.
func (f Figures) Years() []int {
	out := make([]int, 0, len(f))
	for y := range f {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Extract collects the figures of mapped rows. mapping is row index -> field;
// when two rows map to the same field the first one wins.
func Extract(st *Statement, mapping map[int]models.Field) Figures {
	out := make(Figures)
	rows := make([]int, 0, len(mapping))
	for i := range mapping {
		rows = append(rows, i)
	}
	sort.Ints(rows)

	for _, i := range rows {
		if i < 0 || i >= len(st.Rows) {
			continue
		}
		field := mapping[i]
		row := st.Rows[i]
		for k, year := range row.Years {
			if row.Values[k] == nil {
				continue
			}
			if _, seen := out[year][field]; seen {
				continue
			}
			out.set(year, field, *row.Values[k])
		}
	}
	return out
}

// Merge unions balance sheet and cash flow figures; a field present in both
// takes the cash flow value.
func Merge(bs, cf Figures) Figures {
	out := make(Figures)
	for _, src := range []Figures{bs, cf} {
		for year, fields := range src {
			for field, v := range fields {
				out.set(year, field, v)
			}
		}
	}
	return out
}

// Apply writes figures into rec, creating yearly records as needed. A year
// with any debt component gets its interest-bearing debt recomputed from the
// paste alone. It returns the number of values written.
func Apply(rec *models.CompanyRecord, figs Figures) int {
	n := 0
	for _, year := range figs.Years() {
		fields := figs[year]
		y := rec.EnsureYear(year)

		ordered := make([]models.Field, 0, len(fields))
		hasDebt := false
		for field := range fields {
			ordered = append(ordered, field)
			hasDebt = hasDebt || field.IsDebtComponent()
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

		if hasDebt {
			y.InterestBearingDebt = nil
		}
		for _, field := range ordered {
			y.Set(field, fields[field])
			n++
		}
	}
	return n
}
