package paste

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dart_screener/pkg/models"
)

func lines(ls ...string) string { return strings.Join(ls, "\n") }

func i64(v int64) *int64 { return &v }

var balanceSheetPaste = lines(
	"연결 재무상태표",
	"제 23 기 2023.12.31 현재",
	"(단위 : 백만원)",
	"과 목",
	"유동자산",
	"1,000",
	"900",
	"800",
	"현금및현금성자산 (주5,6)",
	"100",
	"",
	"90",
	"",
	"80",
	"단기차입금",
	"",
	"",
	"50",
	"장기차입금",
	"30",
	"",
	"",
	"유동리스부채",
	"５",
)

func TestParseStatement_Columns(t *testing.T) {
	st, err := ParseStatement(balanceSheetPaste, BalanceSheetMarker)
	require.NoError(t, err)

	assert.Equal(t, [3]int{2023, 2022, 2021}, st.Years)
	assert.Equal(t, int64(1_000_000), st.Unit)
	require.Len(t, st.Rows, 5)

	assert.Equal(t, "유동자산", st.Rows[0].Label)
	assert.Equal(t, [3]*int64{i64(1000e6), i64(900e6), i64(800e6)}, st.Rows[0].Values)

	assert.Equal(t, "현금및현금성자산", st.Rows[1].Label, "footnote marker is dropped")
	assert.Equal(t, [3]*int64{i64(100e6), i64(90e6), i64(80e6)}, st.Rows[1].Values, "blank-separated triple maps 1:1")

	assert.Equal(t, [3]*int64{nil, nil, i64(50e6)}, st.Rows[2].Values, "long leading gap puts a lone value in y2")
	assert.Equal(t, [3]*int64{i64(30e6), nil, nil}, st.Rows[3].Values, "long trailing gap puts a lone value in y0")
	assert.Equal(t, [3]*int64{nil, i64(5e6), nil}, st.Rows[4].Values, "no long gap defaults to y1")
}

func TestAssignColumns_TwoValues(t *testing.T) {
	v := func(n int64) cell { return cell{kind: cellValue, value: n} }
	b := cell{kind: cellBlank}

	tests := []struct {
		name string
		run  []cell
		want [3]*int64
	}{
		{"long lead drops y0", []cell{b, b, v(1), v(2)}, [3]*int64{nil, i64(1), i64(2)}},
		{"long middle drops y1", []cell{v(1), b, b, v(2)}, [3]*int64{i64(1), nil, i64(2)}},
		{"long trail drops y2", []cell{v(1), v(2), b, b}, [3]*int64{i64(1), i64(2), nil}},
		{"no long gap drops y2", []cell{v(1), b, v(2)}, [3]*int64{i64(1), i64(2), nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assignColumns(tt.run))
		})
	}
}

func TestAssignColumns_Edges(t *testing.T) {
	b := cell{kind: cellBlank}
	assert.Equal(t, [3]*int64{}, assignColumns(nil))
	assert.Equal(t, [3]*int64{}, assignColumns([]cell{b, b, b}))

	run := []cell{{kind: cellValue, value: 1}, {kind: cellValue, value: 2}, {kind: cellValue, value: 3}, {kind: cellValue, value: 4}}
	assert.Equal(t, [3]*int64{i64(1), i64(2), i64(3)}, assignColumns(run), "extra cells are ignored")

	lone := []cell{b, b, {kind: cellValue, value: 7}, b, b}
	assert.Equal(t, [3]*int64{nil, i64(7), nil}, assignColumns(lone), "both gaps long defaults to y1")
}

func TestParseStatement_CashFlowNegativesAndDash(t *testing.T) {
	text := lines(
		"연결 현금흐름표",
		"제 55 기 2024.01.01 부터 2024.12.31 까지",
		"(단위 : 천원)",
		"영업활동현금흐름",
		"1,200",
		"(300)",
		"-",
		"유형자산의 취득",
		"(50)",
		"(40)",
		"(30)",
	)
	st, err := ParseStatement(text, CashFlowMarker)
	require.NoError(t, err)
	assert.Equal(t, [3]int{2024, 2023, 2022}, st.Years)
	require.Len(t, st.Rows, 2)
	assert.Equal(t, [3]*int64{i64(1_200_000), i64(-300_000), nil}, st.Rows[0].Values)
	assert.Equal(t, [3]*int64{i64(-50_000), i64(-40_000), i64(-30_000)}, st.Rows[1].Values)
}

func TestParseStatement_TabRows(t *testing.T) {
	text := lines(
		"2023.12.31 (단위: 원)",
		"유동자산\t10\t20\t30",
		"단기차입금\t\t5\t",
		"장기차입금 (주7)",
		"1",
		"2",
		"3",
	)
	st, err := ParseStatement(text, BalanceSheetMarker)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Unit)
	require.Len(t, st.Rows, 3)
	assert.Equal(t, [3]*int64{i64(10), i64(20), i64(30)}, st.Rows[0].Values)
	assert.Equal(t, [3]*int64{nil, i64(5), nil}, st.Rows[1].Values, "tab columns are positional")
	assert.Equal(t, "장기차입금", st.Rows[2].Label)
	assert.Equal(t, [3]*int64{i64(1), i64(2), i64(3)}, st.Rows[2].Values)
}

func TestParseStatement_SpaceSeparatedFigures(t *testing.T) {
	text := lines(
		"제 23 기 2023.12.31 현재 (단위 : 원)",
		"유동자산",
		"현금및현금성자산",
		"1,000 2,000 3,000",
		"단기차입금 10 20 30",
		"장기차입금 (주7) 1,500 - (200)",
		"유동리스부채",
		"",
		"",
		"7",
	)
	st, err := ParseStatement(text, BalanceSheetMarker)
	require.NoError(t, err)
	require.Len(t, st.Rows, 5)

	assert.Equal(t, "현금및현금성자산", st.Rows[1].Label)
	assert.Equal(t, [3]*int64{i64(1000), i64(2000), i64(3000)}, st.Rows[1].Values, "figures on one line stay separate")

	assert.Equal(t, "단기차입금", st.Rows[2].Label)
	assert.Equal(t, [3]*int64{i64(10), i64(20), i64(30)}, st.Rows[2].Values, "figures after the label are positional")

	assert.Equal(t, "장기차입금", st.Rows[3].Label)
	assert.Equal(t, [3]*int64{i64(1500), nil, i64(-200)}, st.Rows[3].Values)

	assert.Equal(t, [3]*int64{nil, nil, i64(7)}, st.Rows[4].Values, "line-per-cell rows still use gap inference")
}

func TestParseStatement_InlineMarker(t *testing.T) {
	st, err := ParseStatement(lines("2024 (단위: 천원)", "유동자산 1,000 900 800", "단기차입금 5 6 7"), BalanceSheetMarker)
	require.NoError(t, err)
	require.Len(t, st.Rows, 2)
	assert.Equal(t, "유동자산", st.Rows[0].Label)
	assert.Equal(t, [3]*int64{i64(1_000_000), i64(900_000), i64(800_000)}, st.Rows[0].Values)
}

func TestSplitField(t *testing.T) {
	tests := []struct {
		field string
		label string
		cells int
	}{
		{"", "", 1},
		{"-", "", 1},
		{"1,000 2,000", "", 2},
		{"매출채권 및 기타채권", "매출채권 및 기타채권", 0},
		{"제 23 기", "제 23 기", 0},
		{"자본금 (주5) 100", "자본금", 1},
	}
	for _, tt := range tests {
		label, cells := splitField(tt.field, 1)
		assert.Equal(t, tt.label, label, tt.field)
		assert.Len(t, cells, tt.cells, tt.field)
	}
}

func TestParseStatement_Errors(t *testing.T) {
	var perr *models.ParseError

	_, err := ParseStatement("유동자산\n100", BalanceSheetMarker)
	require.Error(t, err)
	assert.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "reporting year")

	_, err = ParseStatement("2023\n유동자산 합계\n100", BalanceSheetMarker)
	require.Error(t, err, "balance sheet marker must match the whole line")
	assert.True(t, errors.As(err, &perr))

	_, err = ParseStatement("1850년 설립 12345", CashFlowMarker)
	require.Error(t, err)
}

func TestDetectUnit(t *testing.T) {
	assert.Equal(t, int64(1_000_000), DetectUnit("(단위 : 백만원)"))
	assert.Equal(t, int64(1_000), DetectUnit("(단위: 천원)"))
	assert.Equal(t, int64(100_000_000), DetectUnit("(단위：억원)"))
	assert.Equal(t, int64(1), DetectUnit("(단위 : 원)"))
	assert.Equal(t, int64(1_000_000), DetectUnit("(In millions of Korean won)"))
	assert.Equal(t, int64(1_000), DetectUnit("Unit: thousands of KRW"))
	assert.Equal(t, int64(1), DetectUnit("원재료 1,000"))
	assert.Equal(t, int64(1_000_000), DetectUnit("Changes in 2024 won\n(단위 : 백만원)"), "a bare English in is not a declaration")
}

func TestRowMarshalJSON(t *testing.T) {
	row := Row{Label: "단기차입금", Years: [3]int{2023, 2022, 2021}, Values: [3]*int64{i64(5), nil, i64(-3)}}
	out, err := json.Marshal([]Row{row})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"label":"단기차입금","2023":5,"2022":null,"2021":-3}]`, string(out))

	assert.Equal(t, i64(5), row.Value(2023))
	assert.Nil(t, row.Value(2022))
	assert.Nil(t, row.Value(1999))
}
