package xbrl

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dart_screener/pkg/models"
)

const reportFixture = `<?xml version="1.0" encoding="utf-8"?>
<DOCUMENT>
<DOCUMENT-NAME ACODE="11011">사업보고서</DOCUMENT-NAME>
<BODY>
<TABLE>
<TR>
<TE ACODE="ifrs-full:CashFlowsFromUsedInOperatingActivities" ACONTEXT="CFY2023dFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember" ADECIMAL="-6"><P>5,000</P></TE>
<TE ACODE="ifrs-full:CashFlowsFromUsedInOperatingActivities" ACONTEXT="PFY2022dFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember" ADECIMAL="-6"><P>4,000</P></TE>
</TR>
<TR>
<TE ACODE="ifrs-full:PurchaseOfPropertyPlantAndEquipmentClassifiedAsInvestingActivities" ACONTEXT="CFY2023dFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember" ADECIMAL="-6"><P>(1,234)</P></TE>
<TE ACODE="ifrs-full:PurchaseOfPropertyPlantAndEquipmentClassifiedAsInvestingActivities" ACONTEXT="CFY2023dFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_SeparateMember" ADECIMAL="-6"><P>(999)</P></TE>
</TR>
<TR>
<TE ACODE="dart:PurchaseOfIntangibleAssets" ACONTEXT="CFY2023dFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember"><SPAN>300</SPAN></TE>
<TE ACODE="ifrs-full:ShorttermBorrowings" ACONTEXT="CFY2023eFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember" ADECIMAL="-3"><P>2,000</P></TE>
<TE ACODE="ifrs-full:LongtermBorrowings" ACONTEXT="CFY2023eFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember" ADECIMAL="0"><P>500</P></TE>
<TE ACODE="ifrs-full:CashAndCashEquivalents" ACONTEXT="CFY2023eFY_ifrs-full_ConsolidatedAndSeparateFinancialStatementsAxis_ifrs-full_ConsolidatedMember" ADECIMAL="-6"><P>-</P></TE>
<TE ACODE="ifrs-full:CurrentLeaseLiabilities" ACONTEXT="CFY2023eFY" ADECIMAL="-6"><P>77</P></TE>
</TR>
</TABLE>
</BODY>
</DOCUMENT>`

func indexers() map[string]FactIndexer {
	return map[string]FactIndexer{
		"scan":   ScanIndexer{},
		"stream": StreamIndexer{},
	}
}

func TestNormalizeValue(t *testing.T) {
	v, ok := NormalizeValue("(1,234)", -6)
	require.True(t, ok)
	assert.Equal(t, int64(-1234000000), v)

	v, ok = NormalizeValue("1.5", -3)
	require.True(t, ok)
	assert.Equal(t, int64(1500), v)

	v, ok = NormalizeValue("42", 0)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)

	_, ok = NormalizeValue("n/a", -6)
	assert.False(t, ok)
}

func TestKeepContext(t *testing.T) {
	assert.True(t, KeepContext("CFY2023dFY_ifrs-full_ConsolidatedMember"))
	assert.True(t, KeepContext("CFY2023eFY_ifrs-full_SeparateMember"))
	assert.False(t, KeepContext("PFY2022dFY_ifrs-full_ConsolidatedMember"))
	assert.False(t, KeepContext("CFY2023_ifrs-full_ConsolidatedMember"))
	assert.False(t, KeepContext("CFY2023dFY"))
}

func TestParseScale(t *testing.T) {
	assert.Equal(t, DefaultScale, parseScale("", false))
	assert.Equal(t, -3, parseScale("-3", true))
	assert.Equal(t, 0, parseScale("INF", true))
}

func TestBuildFactIndex(t *testing.T) {
	for name, indexer := range indexers() {
		t.Run(name, func(t *testing.T) {
			idx, err := indexer.BuildFactIndex([]byte(reportFixture))
			require.NoError(t, err)

			cfo := idx["ifrs-full_cashflowsfromusedinoperatingactivities"]
			require.Len(t, cfo, 1, "prior-year context must be dropped")
			assert.Equal(t, "5,000", cfo[0].Value)

			capex, ok := idx.First("ifrs-full:PurchaseOfPropertyPlantAndEquipmentClassifiedAsInvestingActivities")
			require.True(t, ok)
			assert.Equal(t, "(1,234)", capex.Value, "first fact in document order wins")
			assert.Equal(t, -6, capex.Scale)

			intangible, ok := idx.First("dart:PurchaseOfIntangibleAssets")
			require.True(t, ok)
			assert.Equal(t, "300", intangible.Value)
			assert.Equal(t, DefaultScale, intangible.Scale)

			_, ok = idx.First("ifrs-full:CashAndCashEquivalents")
			assert.False(t, ok, "dash cells carry no value")

			_, ok = idx.First("ifrs-full:CurrentLeaseLiabilities")
			assert.False(t, ok, "context without scope member is excluded")
		})
	}
}

func TestStreamIndexer_MalformedTail(t *testing.T) {
	doc := `<DOCUMENT><TE ACODE="ifrs-full:CashAndCashEquivalents" ACONTEXT="CFY2023eFY_ConsolidatedMember" ADECIMAL="0"><P>10</P></TE><TE ACODE="x" <<<`
	idx, err := StreamIndexer{}.BuildFactIndex([]byte(doc))
	require.NoError(t, err)
	f, ok := idx.First("ifrs-full:CashAndCashEquivalents")
	require.True(t, ok)
	assert.Equal(t, "10", f.Value)
}

func TestIndicators(t *testing.T) {
	idx, err := ScanIndexer{}.BuildFactIndex([]byte(reportFixture))
	require.NoError(t, err)

	v, ok := LookupIndicator(idx, "cfo")
	require.True(t, ok)
	assert.Equal(t, int64(5000000000), v)

	v, ok = LookupIndicator(idx, "intangible_asset_acquisition")
	require.True(t, ok, "fallback candidate is used when the primary is absent")
	assert.Equal(t, int64(300000000), v)

	_, ok = LookupIndicator(idx, "cash_and_cash_equivalents")
	assert.False(t, ok)
	assert.Equal(t, int64(0), ExtractIndicator(idx, "cash_and_cash_equivalents"))
	assert.Equal(t, int64(0), ExtractIndicator(idx, "no_such_indicator"))
}

func TestIndicatorTable_Apply(t *testing.T) {
	idx, err := StreamIndexer{}.BuildFactIndex([]byte(reportFixture))
	require.NoError(t, err)

	rec := &models.YearlyRecord{Year: 2023}
	n := DefaultIndicators().Apply(rec, idx)
	assert.Equal(t, 5, n)

	require.NotNil(t, rec.CFO)
	assert.Equal(t, int64(5000000000), *rec.CFO)
	require.NotNil(t, rec.TangibleAssetAcquisition)
	assert.Equal(t, int64(1234000000), *rec.TangibleAssetAcquisition, "stored as magnitude")
	require.NotNil(t, rec.InterestBearingDebt)
	assert.Equal(t, int64(2000000+500), *rec.InterestBearingDebt)
	assert.Nil(t, rec.CashAndCashEquivalents, "unmatched stays null")
	assert.Nil(t, rec.InterestExpense)
}

func TestIndicatorTable_ApplyReplacesDebt(t *testing.T) {
	idx, err := ScanIndexer{}.BuildFactIndex([]byte(reportFixture))
	require.NoError(t, err)

	rec := &models.YearlyRecord{Year: 2023, InterestBearingDebt: models.Int64(999)}
	DefaultIndicators().Apply(rec, idx)
	require.NotNil(t, rec.InterestBearingDebt)
	assert.Equal(t, int64(2000000+500), *rec.InterestBearingDebt, "earlier debt total is replaced, not added to")

	cfoOnly := FactIndex{}
	cfoOnly.add(Fact{Code: NormalizeCode("ifrs-full:CashFlowsFromUsedInOperatingActivities"), Value: "10", Scale: 0})
	rec = &models.YearlyRecord{Year: 2023, InterestBearingDebt: models.Int64(999)}
	assert.Equal(t, 1, DefaultIndicators().Apply(rec, cfoOnly))
	assert.Equal(t, int64(999), *rec.InterestBearingDebt, "no debt component keeps the existing total")
	assert.Equal(t, int64(10), *rec.CFO)
}

func TestLoadIndicators_RejectsUnknownKey(t *testing.T) {
	_, err := LoadIndicators([]byte(`{ ebitda: { primary_acode: x, candidate_acodes: [] } }`))
	assert.Error(t, err)

	_, err = LoadIndicators([]byte(`{ cfo: { candidate_acodes: [] } }`))
	assert.Error(t, err)
}

func TestDefaultIndicatorKeys(t *testing.T) {
	assert.Len(t, DefaultIndicators().Keys(), 10)
	ind, ok := DefaultIndicators().Indicator("cfo")
	require.True(t, ok)
	assert.Equal(t, models.FieldCFO, ind.Field)
	assert.Equal(t, "ifrs-full_cashflowsfromusedinoperatingactivities", ind.Codes[0])
}

func zipOf(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractArchiveMember(t *testing.T) {
	files := map[string]string{
		"20240312000736_00760.xml": `<DOCUMENT><DOCUMENT-NAME ACODE="00760">감사보고서</DOCUMENT-NAME></DOCUMENT>`,
		"20240312000736.xml":       reportFixture,
		"readme.txt":               `DOCUMENT-NAME ACODE="11011"`,
	}
	archive := zipOf(t, files, []string{"readme.txt", "20240312000736_00760.xml", "20240312000736.xml"})

	member, err := ExtractArchiveMember(archive)
	require.NoError(t, err)
	assert.Equal(t, reportFixture, string(member))

	idx, err := IndexArchive(archive, ScanIndexer{})
	require.NoError(t, err)
	assert.NotEmpty(t, idx)
}

func TestExtractArchiveMember_Errors(t *testing.T) {
	var perr *models.ParseError

	_, err := ExtractArchiveMember([]byte("not a zip"))
	require.Error(t, err)
	assert.True(t, errors.As(err, &perr))

	archive := zipOf(t, map[string]string{"a.xml": "<DOCUMENT/>"}, []string{"a.xml"})
	_, err = ExtractArchiveMember(archive)
	require.Error(t, err)
	assert.True(t, errors.As(err, &perr))
}
