package bigquery

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
)

func TestToRecord(t *testing.T) {
	posting := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	row := ledger.Row{
		GLAccount:    "100000",
		PostingDate:  &posting,
		Amount:       decimal.RequireFromString("1234.56"),
		BusinessArea: "1000",
		VendorCode:   "V1",
		DocumentType: "KR",
	}

	rec := toRecord("ds-1", row)
	if rec.DatasetID != "ds-1" || rec.GLAccount != "100000" {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	if !rec.PostingDate.Valid || rec.PostingDate.Date.String() != "2024-03-15" {
		t.Errorf("posting date = %+v, want 2024-03-15", rec.PostingDate)
	}
	if got := rec.Amount.FloatString(2); got != "1234.56" {
		t.Errorf("amount = %s, want 1234.56", got)
	}
}

func TestToRecord_NilPostingDate(t *testing.T) {
	rec := toRecord("ds-1", ledger.Row{GLAccount: "100000", Amount: decimal.Zero})
	if rec.PostingDate.Valid {
		t.Error("posting date should be invalid for nil date")
	}
}
