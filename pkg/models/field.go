package models

import "fmt"

// Field is a canonical account field. The set is closed: alias tables loaded
// from data files are validated against it.
type Field int

const (
	FieldRevenue Field = iota + 1
	FieldOperatingIncome
	FieldNetIncome
	FieldTotalAssets
	FieldTotalEquity
	FieldInterestBearingDebt
	FieldCashAndCashEquivalents
	FieldInterestExpense
	FieldCFO
	FieldTangibleAssetAcquisition
	FieldIntangibleAssetAcquisition

	// Debt components. Setting one adds into InterestBearingDebt.
	FieldShortTermBorrowings
	FieldCurrentPortionOfLongTermDebt
	FieldLongTermBorrowings
	FieldCurrentLeaseLiabilities
	FieldNonCurrentLeaseLiabilities
)

var fieldNames = map[Field]string{
	FieldRevenue:                      "revenue",
	FieldOperatingIncome:              "operating_income",
	FieldNetIncome:                    "net_income",
	FieldTotalAssets:                  "total_assets",
	FieldTotalEquity:                  "total_equity",
	FieldInterestBearingDebt:          "interest_bearing_debt",
	FieldCashAndCashEquivalents:       "cash_and_cash_equivalents",
	FieldInterestExpense:              "interest_expense",
	FieldCFO:                          "cfo",
	FieldTangibleAssetAcquisition:     "tangible_asset_acquisition",
	FieldIntangibleAssetAcquisition:   "intangible_asset_acquisition",
	FieldShortTermBorrowings:          "short_term_borrowings",
	FieldCurrentPortionOfLongTermDebt: "current_portion_of_long_term_debt",
	FieldLongTermBorrowings:           "long_term_borrowings",
	FieldCurrentLeaseLiabilities:      "current_lease_liabilities",
	FieldNonCurrentLeaseLiabilities:   "non_current_lease_liabilities",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(fieldNames))
	for f, name := range fieldNames {
		m[name] = f
	}
	return m
}()

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField resolves a snake_case field name.
func ParseField(name string) (Field, error) {
	f, ok := fieldsByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown field %q", name)
	}
	return f, nil
}

// IsDebtComponent reports whether f accumulates into InterestBearingDebt.
func (f Field) IsDebtComponent() bool {
	return f >= FieldShortTermBorrowings && f <= FieldNonCurrentLeaseLiabilities
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// setters is the field -> record slot table. Acquisitions and interest paid are
// stored as magnitudes since statements print them as outflows.
var setters = map[Field]func(*YearlyRecord, int64){
	FieldRevenue:                func(y *YearlyRecord, v int64) { y.Revenue = Int64(v) },
	FieldOperatingIncome:        func(y *YearlyRecord, v int64) { y.OperatingIncome = Int64(v) },
	FieldNetIncome:              func(y *YearlyRecord, v int64) { y.NetIncome = Int64(v) },
	FieldTotalAssets:            func(y *YearlyRecord, v int64) { y.TotalAssets = Int64(v) },
	FieldTotalEquity:            func(y *YearlyRecord, v int64) { y.TotalEquity = Int64(v) },
	FieldInterestBearingDebt:    func(y *YearlyRecord, v int64) { y.InterestBearingDebt = Int64(v) },
	FieldCashAndCashEquivalents: func(y *YearlyRecord, v int64) { y.CashAndCashEquivalents = Int64(v) },
	FieldInterestExpense:        func(y *YearlyRecord, v int64) { y.InterestExpense = Int64(abs64(v)) },
	FieldCFO:                    func(y *YearlyRecord, v int64) { y.CFO = Int64(v) },
	FieldTangibleAssetAcquisition: func(y *YearlyRecord, v int64) {
		y.TangibleAssetAcquisition = Int64(abs64(v))
	},
	FieldIntangibleAssetAcquisition: func(y *YearlyRecord, v int64) {
		y.IntangibleAssetAcquisition = Int64(abs64(v))
	},
	FieldShortTermBorrowings:          addDebt,
	FieldCurrentPortionOfLongTermDebt: addDebt,
	FieldLongTermBorrowings:           addDebt,
	FieldCurrentLeaseLiabilities:      addDebt,
	FieldNonCurrentLeaseLiabilities:   addDebt,
}

func addDebt(y *YearlyRecord, v int64) {
	if y.InterestBearingDebt == nil {
		y.InterestBearingDebt = Int64(v)
		return
	}
	*y.InterestBearingDebt += v
}

// Set writes v into the slot for f. Unknown fields are ignored; alias tables
// reject them at load time.
func (y *YearlyRecord) Set(f Field, v int64) {
	if set, ok := setters[f]; ok {
		set(y, v)
	}
}

// Get returns the stored value for a direct (non-component) field.
func (y *YearlyRecord) Get(f Field) *int64 {
	switch f {
	case FieldRevenue:
		return y.Revenue
	case FieldOperatingIncome:
		return y.OperatingIncome
	case FieldNetIncome:
		return y.NetIncome
	case FieldTotalAssets:
		return y.TotalAssets
	case FieldTotalEquity:
		return y.TotalEquity
	case FieldInterestBearingDebt:
		return y.InterestBearingDebt
	case FieldCashAndCashEquivalents:
		return y.CashAndCashEquivalents
	case FieldInterestExpense:
		return y.InterestExpense
	case FieldCFO:
		return y.CFO
	case FieldTangibleAssetAcquisition:
		return y.TangibleAssetAcquisition
	case FieldIntangibleAssetAcquisition:
		return y.IntangibleAssetAcquisition
	}
	return nil
}
