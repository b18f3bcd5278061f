package store

import (
	"strings"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/shopspring/decimal"
)

const sapExtract = `RACCT;BUDAT;HSL;RBUSA;LIFNR;Vendor Name;KUNNR;Customer Name;BLART
100000;15-03-2024;1500.50;1000;V001;Acme Corp;;;KR
100000;2023-11-02;-200;2000;;;C001;Globex;DR
100000;not-a-date;300;1000;;;;;KR
200000;01.06.2022;12,5;;;;;;SA
`

func TestReadLedgerCSV_SAPHeaders(t *testing.T) {
	table, stats, err := ReadLedgerCSV(strings.NewReader(sapExtract))
	if err != nil {
		t.Fatalf("ReadLedgerCSV failed: %v", err)
	}

	if stats.Rows != 4 {
		t.Fatalf("rows = %d, want 4", stats.Rows)
	}
	if stats.BadDates != 1 {
		t.Errorf("bad dates = %d, want 1", stats.BadDates)
	}
	if stats.BadAmounts != 0 {
		t.Errorf("bad amounts = %d, want 0", stats.BadAmounts)
	}

	first := table.Rows[0]
	if first.GLAccount != "100000" || first.BusinessArea != "1000" || first.VendorCode != "V001" {
		t.Errorf("unexpected first row: %+v", first)
	}
	if !first.Amount.Equal(decimal.RequireFromString("1500.50")) {
		t.Errorf("first amount = %s, want 1500.50", first.Amount)
	}
	if first.PostingDate == nil || first.PostingDate.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("first posting date = %v, want 2024-03-15", first.PostingDate)
	}

	if table.Rows[1].PostingDate == nil || table.Rows[1].PostingDate.Format("2006-01-02") != "2023-11-02" {
		t.Errorf("ISO posting date not parsed: %v", table.Rows[1].PostingDate)
	}
	if table.Rows[2].PostingDate != nil {
		t.Errorf("unparseable posting date should be nil, got %v", table.Rows[2].PostingDate)
	}
	if !table.Rows[3].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("decimal-comma amount = %s, want 12.5", table.Rows[3].Amount)
	}
}

func TestReadLedgerCSV_VerboseHeaders(t *testing.T) {
	extract := "G/L Account;Posting Date;Amount in Local Currency;Business Area\n" +
		"100000;2024-01-10;42;1000\n"

	table, _, err := ReadLedgerCSV(strings.NewReader(extract))
	if err != nil {
		t.Fatalf("ReadLedgerCSV failed: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].GLAccount != "100000" {
		t.Fatalf("unexpected table: %+v", table.Rows)
	}
}

func TestReadLedgerCSV_ShortRecordsArePadded(t *testing.T) {
	extract := "RACCT;BUDAT;HSL;RBUSA\n" +
		"100000;2024-01-10;42\n" // missing business area column

	table, _, err := ReadLedgerCSV(strings.NewReader(extract))
	if err != nil {
		t.Fatalf("ReadLedgerCSV failed: %v", err)
	}
	if table.Rows[0].BusinessArea != "" {
		t.Errorf("business area = %q, want empty", table.Rows[0].BusinessArea)
	}
}

func TestReadLedgerCSV_MissingRequiredColumn(t *testing.T) {
	extract := "BUDAT;HSL\n2024-01-10;42\n"

	if _, _, err := ReadLedgerCSV(strings.NewReader(extract)); err == nil {
		t.Fatal("expected error for missing gl_account column")
	}
}

func TestReadLedgerCSV_EmptyFile(t *testing.T) {
	if _, _, err := ReadLedgerCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestParseAmountFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1500.50", "1500.50", true},
		{"-200", "-200", true},
		{"1,234.56", "1234.56", true},
		{"1.234,56", "1234.56", true},
		{"12,5", "12.5", true},
		{"", "0", false},
		{"abc", "0", false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		if ok != tt.ok {
			t.Errorf("parseAmount(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestHeaderAliasesCoverCanonicalNames(t *testing.T) {
	for _, c := range ledger.Columns {
		if _, ok := headerAliases[c]; !ok {
			t.Errorf("canonical column %q has no alias entry", c)
		}
	}
}
