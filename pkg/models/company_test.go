package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureYear_KeepsAscendingOrder(t *testing.T) {
	c := NewCompanyRecord("00126380")
	c.EnsureYear(2023)
	c.EnsureYear(2021)
	c.EnsureYear(2022)
	c.EnsureYear(2023)

	require.Len(t, c.Yearly, 3)
	assert.Equal(t, []int{2021, 2022, 2023}, []int{c.Yearly[0].Year, c.Yearly[1].Year, c.Yearly[2].Year})
}

func TestWindow(t *testing.T) {
	c := NewCompanyRecord("00126380")
	for y := 2017; y <= 2023; y++ {
		c.EnsureYear(y)
	}
	w := c.Window(5)
	require.Len(t, w, 5)
	assert.Equal(t, 2019, w[0].Year)
	assert.Equal(t, 2023, w[4].Year)

	short := NewCompanyRecord("x")
	short.EnsureYear(2023)
	assert.Len(t, short.Window(5), 1)
}

func TestSetLatestReport(t *testing.T) {
	c := NewCompanyRecord("00126380")
	c.SetLatestReport("20230310000123", 2022)
	c.SetLatestReport("20220308000456", 2021)
	c.SetLatestReport("", 2030)

	assert.Equal(t, "20230310000123", c.LatestReportID)
	assert.Equal(t, 2022, c.LatestReportYear)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("operating_income")
	require.NoError(t, err)
	assert.Equal(t, FieldOperatingIncome, f)
	assert.Equal(t, "operating_income", f.String())

	_, err = ParseField("operating_incom")
	assert.Error(t, err)
}

func TestSet_DebtComponentsAccumulate(t *testing.T) {
	y := &YearlyRecord{Year: 2023}
	y.Set(FieldShortTermBorrowings, 100)
	y.Set(FieldLongTermBorrowings, 250)
	y.Set(FieldCurrentLeaseLiabilities, 5)

	require.NotNil(t, y.InterestBearingDebt)
	assert.Equal(t, int64(355), *y.InterestBearingDebt)
	assert.True(t, FieldLongTermBorrowings.IsDebtComponent())
	assert.False(t, FieldCFO.IsDebtComponent())
}

func TestSet_OutflowsStoredAsMagnitude(t *testing.T) {
	y := &YearlyRecord{Year: 2023}
	y.Set(FieldTangibleAssetAcquisition, -700)
	y.Set(FieldInterestExpense, -30)
	y.Set(FieldCFO, -10)

	assert.Equal(t, int64(700), *y.TangibleAssetAcquisition)
	assert.Equal(t, int64(30), *y.InterestExpense)
	assert.Equal(t, int64(-10), *y.CFO)
	assert.Nil(t, y.Revenue)
	assert.Equal(t, y.CFO, y.Get(FieldCFO))
}
