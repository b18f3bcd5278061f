package ledger

import "time"

// DerivedRow extends a ledger row with the two per-query columns. Derived
// rows live only for the duration of one query and are never written back
// into the snapshot.
type DerivedRow struct {
	Row
	AgeDays  int // meaningless when PostingDate is nil
	Ageing   string
	Division string
}

// Derive produces one DerivedRow per input row, preserving order, applying
// the age classifier to each posting date and the division resolver to each
// business area. The input rows are not modified. Deterministic for
// identical inputs.
func Derive(rows []Row, ref time.Time, mapping map[string]string) []DerivedRow {
	derived := make([]DerivedRow, 0, len(rows))
	for _, r := range rows {
		d := DerivedRow{
			Row:      r,
			Ageing:   ClassifyAge(ref, r.PostingDate),
			Division: ResolveDivision(r.BusinessArea, mapping),
		}
		if r.PostingDate != nil {
			d.AgeDays = AgeDays(ref, *r.PostingDate)
		}
		derived = append(derived, d)
	}
	return derived
}
