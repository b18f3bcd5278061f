package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testTable() *ledger.Table {
	posted := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	return &ledger.Table{Rows: []ledger.Row{
		{
			GLAccount:    "100000",
			PostingDate:  &posted,
			Amount:       decimal.RequireFromString("1500.50"),
			BusinessArea: "1000",
			VendorCode:   "V001",
			VendorName:   "Acme Corp",
			DocumentType: "KR",
		},
		{
			GLAccount: "200000",
			Amount:    decimal.RequireFromString("-42.01"),
		},
	}}
}

func TestStore_EmptyReportsNoSnapshot(t *testing.T) {
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, err := s.Current(); !errors.Is(err, ledger.ErrNoSnapshot) {
		t.Errorf("Current error = %v, want ErrNoSnapshot", err)
	}
}

func TestStore_ReplaceAndCurrent(t *testing.T) {
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	snap, err := s.Replace(testTable(), "upload.csv")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if snap.DatasetID == "" || snap.Filename != "upload.csv" {
		t.Errorf("unexpected snapshot metadata: %+v", snap)
	}

	table, err := s.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
}

func TestStore_ParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, err := s.Replace(testTable(), "upload.csv"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	// A fresh store over the same directory must restore the dataset.
	restored, err := NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := restored.LoadExisting(context.Background()); err != nil {
		t.Fatalf("LoadExisting failed: %v", err)
	}

	table, err := restored.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	want := testTable()
	if len(table.Rows) != len(want.Rows) {
		t.Fatalf("rows = %d, want %d", len(table.Rows), len(want.Rows))
	}
	for i, got := range table.Rows {
		w := want.Rows[i]
		if got.GLAccount != w.GLAccount || got.BusinessArea != w.BusinessArea ||
			got.VendorCode != w.VendorCode || got.VendorName != w.VendorName ||
			got.DocumentType != w.DocumentType {
			t.Errorf("row %d = %+v, want %+v", i, got, w)
		}
		if !got.Amount.Equal(w.Amount) {
			t.Errorf("row %d amount = %s, want %s", i, got.Amount, w.Amount)
		}
		if (got.PostingDate == nil) != (w.PostingDate == nil) {
			t.Errorf("row %d posting date nilness mismatch", i)
		} else if got.PostingDate != nil && !got.PostingDate.Equal(*w.PostingDate) {
			t.Errorf("row %d posting date = %v, want %v", i, got.PostingDate, w.PostingDate)
		}
	}
}

func TestStore_LoadExistingWithNoFile(t *testing.T) {
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.LoadExisting(context.Background()); err != nil {
		t.Fatalf("LoadExisting on empty dir should be a no-op, got %v", err)
	}
	if _, err := s.Current(); !errors.Is(err, ledger.ErrNoSnapshot) {
		t.Errorf("Current error = %v, want ErrNoSnapshot", err)
	}
}
