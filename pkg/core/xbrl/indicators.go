package xbrl

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"dart_screener/pkg/core/utils"
	"dart_screener/pkg/models"
)

//go:embed acode_mappings.hjson
var defaultMappingsHJSON []byte

var defaultIndicators = mustLoadIndicators(defaultMappingsHJSON)

// Indicator is one canonical indicator and its candidate ACODEs, primary first.
type Indicator struct {
	Key   string
	Field models.Field
	Codes []string // normalized
}

// IndicatorTable resolves indicator keys to candidate ACODEs.
type IndicatorTable struct {
	byKey map[string]Indicator
	keys  []string
}

type acodeMapping struct {
	PrimaryAcode    string   `json:"primary_acode"`
	CandidateAcodes []string `json:"candidate_acodes"`
}

// DefaultIndicators returns the table embedded in the binary.
func DefaultIndicators() *IndicatorTable { return defaultIndicators }

func mustLoadIndicators(data []byte) *IndicatorTable {
	t, err := LoadIndicators(data)
	if err != nil {
		panic(fmt.Sprintf("xbrl: embedded acode mappings: %v", err))
	}
	return t
}

// LoadIndicators parses an HJSON mapping of indicator key -> ACODEs. Every key
// must name a canonical field.
func LoadIndicators(data []byte) (*IndicatorTable, error) {
	raw, err := utils.ParseHJSON(data)
	if err != nil {
		return nil, err
	}
	var mappings map[string]acodeMapping
	if err := json.Unmarshal(raw, &mappings); err != nil {
		return nil, fmt.Errorf("failed to decode acode mappings: %w", err)
	}

	t := &IndicatorTable{byKey: make(map[string]Indicator, len(mappings))}
	for key, m := range mappings {
		field, err := models.ParseField(key)
		if err != nil {
			return nil, fmt.Errorf("indicator %q: %w", key, err)
		}
		if m.PrimaryAcode == "" {
			return nil, fmt.Errorf("indicator %q: primary_acode is empty", key)
		}
		codes := []string{NormalizeCode(m.PrimaryAcode)}
		for _, c := range m.CandidateAcodes {
			codes = append(codes, NormalizeCode(c))
		}
		t.byKey[key] = Indicator{Key: key, Field: field, Codes: codes}
		t.keys = append(t.keys, key)
	}
	sort.Strings(t.keys)
	return t, nil
}

// Keys returns the indicator keys in sorted order.
func (t *IndicatorTable) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Indicator returns the entry for key.
func (t *IndicatorTable) Indicator(key string) (Indicator, bool) {
	ind, ok := t.byKey[key]
	return ind, ok
}

// Lookup resolves key against idx: candidates are tried in order and the
// first fact that normalizes to a number wins.
func (t *IndicatorTable) Lookup(idx FactIndex, key string) (int64, bool) {
	ind, ok := t.byKey[key]
	if !ok {
		return 0, false
	}
	for _, code := range ind.Codes {
		fact, ok := idx.First(code)
		if !ok {
			continue
		}
		if v, ok := NormalizeValue(fact.Value, fact.Scale); ok {
			return v, true
		}
	}
	return 0, false
}

// Apply writes every resolved indicator into rec and returns how many matched.
// Unmatched indicators leave their fields untouched. When any debt component
// resolves, InterestBearingDebt is rebuilt from the matched components alone.
func (t *IndicatorTable) Apply(rec *models.YearlyRecord, idx FactIndex) int {
	type match struct {
		field models.Field
		v     int64
	}
	var matched []match
	hasDebt := false
	for _, key := range t.keys {
		v, ok := t.Lookup(idx, key)
		if !ok {
			continue
		}
		f := t.byKey[key].Field
		matched = append(matched, match{f, v})
		hasDebt = hasDebt || f.IsDebtComponent()
	}

	if hasDebt {
		rec.InterestBearingDebt = nil
	}
	for _, m := range matched {
		rec.Set(m.field, m.v)
	}
	return len(matched)
}

// LookupIndicator resolves key with the default table.
func LookupIndicator(idx FactIndex, key string) (int64, bool) {
	return defaultIndicators.Lookup(idx, key)
}

// ExtractIndicator resolves key with the default table; no match is 0.
func ExtractIndicator(idx FactIndex, key string) int64 {
	v, _ := defaultIndicators.Lookup(idx, key)
	return v
}
