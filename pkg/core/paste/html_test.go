package paste

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dart_screener/pkg/models"
)

const balanceSheetHTML = `<html><body>
<p>연결 재무상태표</p>
<table>
  <tr><td>제 23 기 2023.12.31 현재</td></tr>
  <tr><td>(단위 : 원)</td></tr>
</table>
<table>
  <tr><th>과 목</th><th>제 23 기</th><th>제 22 기</th><th>제 21 기</th></tr>
  <tr><td>유동자산</td><td>1,000</td><td>900</td><td>800</td></tr>
  <tr><td><p>현금및현금성자산 (주5)</p></td><td>100</td><td></td><td>80</td></tr>
  <tr><td></td><td></td><td></td><td></td></tr>
  <tr><td>단기차입금</td><td>(10)</td><td>20</td><td>30</td></tr>
</table>
</body></html>`

func TestFlattenHTML(t *testing.T) {
	flat, err := FlattenHTML(balanceSheetHTML)
	require.NoError(t, err)
	assert.Equal(t, lines(
		"연결 재무상태표",
		"제 23 기 2023.12.31 현재",
		"(단위 : 원)",
		"과 목\t제 23 기\t제 22 기\t제 21 기",
		"유동자산\t1,000\t900\t800",
		"현금및현금성자산 (주5)\t100\t\t80",
		"단기차입금\t(10)\t20\t30",
	), flat)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML(balanceSheetHTML))
	assert.False(t, LooksLikeHTML(balanceSheetPaste))
}

func TestProcess_HTMLPaste(t *testing.T) {
	res, err := Process(context.Background(), balanceSheetHTML, "", nil)
	require.NoError(t, err)
	assert.Nil(t, res.CashFlow)
	require.NotNil(t, res.BalanceSheet)
	assert.Equal(t, [3]int{2023, 2022, 2021}, res.BalanceSheet.Years)

	assert.Equal(t, int64(100), res.Figures[2023][models.FieldCashAndCashEquivalents])
	_, ok := res.Figures[2022][models.FieldCashAndCashEquivalents]
	assert.False(t, ok, "empty cell stays missing")
	assert.Equal(t, int64(-10), res.Figures[2023][models.FieldShortTermBorrowings])
}
