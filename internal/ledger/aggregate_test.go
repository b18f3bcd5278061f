package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(t time.Time) *time.Time { return &t }

func testRows() []DerivedRow {
	mapping := map[string]string{"1000": "Retail", "2000": "Wholesale"}
	rows := []Row{
		{GLAccount: "100000", PostingDate: datePtr(refDate.AddDate(0, 0, -10)), Amount: dec("500"), BusinessArea: "1000", VendorCode: "V1", VendorName: "Acme"},
		{GLAccount: "100000", PostingDate: datePtr(refDate.AddDate(0, 0, -400)), Amount: dec("300"), BusinessArea: "2000", VendorCode: "", VendorName: " "},
		{GLAccount: "100000", PostingDate: nil, Amount: dec("200"), BusinessArea: "1000", VendorCode: "  ", VendorName: ""},
		{GLAccount: "200000", PostingDate: datePtr(refDate.AddDate(0, 0, -10)), Amount: dec("999"), BusinessArea: "9999"},
	}
	return Derive(rows, refDate, mapping)
}

func sumTotals(rows []AggregateRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Total)
	}
	return total
}

func TestAggregate_GroupAndSum(t *testing.T) {
	rows := testRows()

	grouped := Aggregate(rows, []string{ColDivision}, []Filter{{Column: ColGLAccount, Value: "100000"}})
	SortByKeys(grouped)

	if len(grouped) != 2 {
		t.Fatalf("expected 2 division groups, got %d", len(grouped))
	}
	if grouped[0].Keys[0] != "Retail" || !grouped[0].Total.Equal(dec("700")) {
		t.Errorf("Retail group = %v/%v, want Retail/700", grouped[0].Keys, grouped[0].Total)
	}
	if grouped[1].Keys[0] != "Wholesale" || !grouped[1].Total.Equal(dec("300")) {
		t.Errorf("Wholesale group = %v/%v, want Wholesale/300", grouped[1].Keys, grouped[1].Total)
	}
}

func TestAggregate_ConservationOfTotal(t *testing.T) {
	rows := testRows()
	filters := []Filter{{Column: ColGLAccount, Value: "100000"}}

	var want decimal.Decimal
	for _, r := range rows {
		if r.GLAccount == "100000" {
			want = want.Add(r.Amount)
		}
	}

	keySets := [][]string{
		{ColAgeing},
		{ColDivision},
		{ColAgeing, ColDivision},
		{ColVendorCode, ColVendorName},
	}
	for _, keys := range keySets {
		got := sumTotals(Aggregate(rows, keys, filters))
		if !got.Equal(want) {
			t.Errorf("grouping by %v: total %s, want %s", keys, got, want)
		}
	}
}

func TestAggregate_BlankIdentifiersCollapseToOthers(t *testing.T) {
	rows := testRows()

	grouped := Aggregate(rows, []string{ColVendorCode}, []Filter{{Column: ColGLAccount, Value: "100000"}})

	var others *AggregateRow
	for i := range grouped {
		if grouped[i].Keys[0] == DivisionOthers {
			if others != nil {
				t.Fatal("blank vendor codes split into multiple Others groups")
			}
			others = &grouped[i]
		}
	}
	if others == nil {
		t.Fatal("no Others group for blank vendor codes")
	}
	if !others.Total.Equal(dec("500")) {
		t.Errorf("Others vendor total = %s, want 500", others.Total)
	}
}

func TestAggregate_EmptyResult(t *testing.T) {
	grouped := Aggregate(testRows(), []string{ColAgeing}, []Filter{{Column: ColGLAccount, Value: "absent"}})
	if len(grouped) != 0 {
		t.Errorf("expected empty result, got %d groups", len(grouped))
	}
}

func TestSortByTotalDesc(t *testing.T) {
	rows := []AggregateRow{
		{Keys: []string{"a"}, Total: dec("10")},
		{Keys: []string{"b"}, Total: dec("30")},
		{Keys: []string{"c"}, Total: dec("-5")},
		{Keys: []string{"d"}, Total: dec("30")},
	}
	SortByTotalDesc(rows)

	got := []string{rows[0].Keys[0], rows[1].Keys[0], rows[2].Keys[0], rows[3].Keys[0]}
	// b and d tie on total; stable sort keeps first-appearance order.
	want := []string{"b", "d", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
