package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Filter is an exact-equality predicate on one column of a derived row.
// Multiple filters are combined as a logical AND.
type Filter struct {
	Column string
	Value  string
}

// AggregateRow is one group-by result: the group-key values in the order the
// group keys were requested, plus the summed amount.
type AggregateRow struct {
	Keys  []string
	Total decimal.Decimal
}

// groupKeySep joins key tuples into map keys. Unit separator, so it cannot
// collide with values that contain commas or semicolons.
const groupKeySep = "\x1f"

// Aggregate applies the filters, groups the surviving rows by the tuple of
// key columns and sums their amounts with exact decimal arithmetic. Groups
// come back in first-appearance order; callers apply the sort policy of
// their drill-down level. An empty result is valid, not an error.
func Aggregate(rows []DerivedRow, keys []string, filters []Filter) []AggregateRow {
	groups := make(map[string]*AggregateRow)
	var order []string

	for _, r := range rows {
		if !matchesAll(r, filters) {
			continue
		}
		keyValues := make([]string, len(keys))
		for i, k := range keys {
			keyValues[i] = fieldValue(r, k)
		}
		groupKey := strings.Join(keyValues, groupKeySep)
		g, ok := groups[groupKey]
		if !ok {
			g = &AggregateRow{Keys: keyValues}
			groups[groupKey] = g
			order = append(order, groupKey)
		}
		g.Total = g.Total.Add(r.Amount)
	}

	result := make([]AggregateRow, 0, len(order))
	for _, groupKey := range order {
		result = append(result, *groups[groupKey])
	}
	return result
}

func matchesAll(r DerivedRow, filters []Filter) bool {
	for _, f := range filters {
		if fieldValue(r, f.Column) != f.Value {
			return false
		}
	}
	return true
}

// fieldValue reads a grouping/filter column off a derived row. Vendor,
// customer and document-type identifiers are frequently blank in real
// extracts; those are folded into a single "Others" group instead of
// fragmenting into near-duplicate empty-string groups.
func fieldValue(r DerivedRow, column string) string {
	switch column {
	case ColGLAccount:
		return r.GLAccount
	case ColAgeing:
		return r.Ageing
	case ColDivision:
		return r.Division
	case ColBusinessArea:
		return r.BusinessArea
	case ColVendorCode:
		return blankToOthers(r.VendorCode)
	case ColVendorName:
		return blankToOthers(r.VendorName)
	case ColCustomerCode:
		return blankToOthers(r.CustomerCode)
	case ColCustomerName:
		return blankToOthers(r.CustomerName)
	case ColDocumentType:
		return blankToOthers(r.DocumentType)
	}
	return ""
}

func blankToOthers(v string) string {
	if strings.TrimSpace(v) == "" {
		return DivisionOthers
	}
	return v
}

// SortByKeys orders aggregate rows ascending by their key tuple,
// lexicographically, first key first.
func SortByKeys(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		for k := range rows[i].Keys {
			if rows[i].Keys[k] != rows[j].Keys[k] {
				return rows[i].Keys[k] < rows[j].Keys[k]
			}
		}
		return false
	})
}

// SortByTotalDesc orders aggregate rows largest summed amount first. The
// stable sort keeps first-appearance order between equal totals, so output
// stays deterministic for a given snapshot.
func SortByTotalDesc(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total.GreaterThan(rows[j].Total)
	})
}
