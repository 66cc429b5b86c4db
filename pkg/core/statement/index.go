package statement

import (
	"sort"

	"dart_screener/pkg/models"
)

// Period selects one of the three amounts a filing reports per account.
type Period int

const (
	Current    Period = iota // thstrm
	Prior                    // frmtrm
	PriorPrior               // bfefrmtrm
)

// LineItem is one raw account row of a statement response.
type LineItem struct {
	Name         string
	Consolidated bool      // CFS row
	Amounts      [3]string // current, prior, prior-prior
}

// AccountIndex maps account names to their amounts for one
// (entity, year, report, consolidation) response. The first row seen for a
// normalized name wins and is never overwritten.
type AccountIndex struct {
	byName     map[string][3]string
	byOriginal map[string][3]string
	aliases    *AliasTable
}

// Build indexes items. With preferConsolidated, CFS rows are fed before OFS
// rows so consolidated amounts win; otherwise input order decides.
func Build(items []LineItem, preferConsolidated bool, aliases *AliasTable) *AccountIndex {
	if aliases == nil {
		aliases = defaultAliases
	}
	if preferConsolidated {
		ordered := make([]LineItem, len(items))
		copy(ordered, items)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Consolidated && !ordered[j].Consolidated
		})
		items = ordered
	}

	idx := &AccountIndex{
		byName:     make(map[string][3]string, len(items)),
		byOriginal: make(map[string][3]string, len(items)),
		aliases:    aliases,
	}
	for _, it := range items {
		key := Normalize(it.Name)
		if key == "" {
			continue
		}
		if _, seen := idx.byName[key]; !seen {
			idx.byName[key] = it.Amounts
		}
		if _, seen := idx.byOriginal[it.Name]; !seen {
			idx.byOriginal[it.Name] = it.Amounts
		}
	}
	return idx
}

// Len returns the number of distinct normalized names.
func (idx *AccountIndex) Len() int {
	return len(idx.byName)
}

// Lookup resolves a canonical field for the current period.
func (idx *AccountIndex) Lookup(f models.Field) *int64 {
	return idx.LookupPeriod(f, Current)
}

// LookupPeriod resolves a canonical field for period. The first alias that is
// present with a parseable amount wins; nil means no matching account.
func (idx *AccountIndex) LookupPeriod(f models.Field, p Period) *int64 {
	for _, name := range idx.aliases.Names(f) {
		amounts, ok := idx.byName[name]
		if !ok {
			continue
		}
		if v, ok := ParseAmount(amounts[p]); ok {
			return &v
		}
	}
	return nil
}

// Exact returns the amounts for an account by its original, unnormalized name.
func (idx *AccountIndex) Exact(name string) ([3]string, bool) {
	a, ok := idx.byOriginal[name]
	return a, ok
}

// Populate writes every field the alias table can resolve for period into
// rec and returns how many were set.
func Populate(rec *models.YearlyRecord, idx *AccountIndex, p Period) int {
	n := 0
	for _, f := range idx.aliases.Fields() {
		if v := idx.LookupPeriod(f, p); v != nil {
			rec.Set(f, *v)
			n++
		}
	}
	return n
}
