package ledger

// DivisionOthers is the fallback division label. It covers business areas
// absent from the mapping, blank mapping values, and the case where the
// mapping file could not be loaded at all.
const DivisionOthers = "Others"

// ResolveDivision looks up a raw business-area code in the mapping and
// returns the division label. Matching is exact string equality; no
// trimming or case folding happens here. The function never fails: any
// miss resolves to DivisionOthers.
func ResolveDivision(businessArea string, mapping map[string]string) string {
	if division, ok := mapping[businessArea]; ok && division != "" {
		return division
	}
	return DivisionOthers
}
