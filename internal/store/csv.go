package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/shopspring/decimal"
)

// headerAliases maps the header spellings seen in real G/L extracts to the
// canonical column names. SAP exports use the technical field names (RACCT,
// BUDAT, HSL, RBUSA, ...); older extracts spell them out.
var headerAliases = map[string]string{
	"gl_account":  ledger.ColGLAccount,
	"g/l account": ledger.ColGLAccount,
	"racct":       ledger.ColGLAccount,

	"posting_date": ledger.ColPostingDate,
	"posting date": ledger.ColPostingDate,
	"budat":        ledger.ColPostingDate,
	"bldat":        ledger.ColPostingDate,

	"amount":                   ledger.ColAmount,
	"amount in local currency": ledger.ColAmount,
	"hsl":                      ledger.ColAmount,

	"business_area": ledger.ColBusinessArea,
	"business area": ledger.ColBusinessArea,
	"rbusa":         ledger.ColBusinessArea,

	"vendor_code": ledger.ColVendorCode,
	"vendor code": ledger.ColVendorCode,
	"vendor":      ledger.ColVendorCode,
	"lifnr":       ledger.ColVendorCode,

	"vendor_name": ledger.ColVendorName,
	"vendor name": ledger.ColVendorName,

	"customer_code": ledger.ColCustomerCode,
	"customer code": ledger.ColCustomerCode,
	"customer":      ledger.ColCustomerCode,
	"kunnr":         ledger.ColCustomerCode,

	"customer_name": ledger.ColCustomerName,
	"customer name": ledger.ColCustomerName,

	"document_type": ledger.ColDocumentType,
	"document type": ledger.ColDocumentType,
	"blart":         ledger.ColDocumentType,
}

// postingDateLayouts covers the date formats observed across extract
// variants: ISO, day-first with dashes, day-first with dots.
var postingDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
}

// ReadStats summarises per-row recoveries during CSV conversion. Bad dates
// and bad amounts never drop a row; they are counted here so the caller can
// log them.
type ReadStats struct {
	Rows       int
	BadDates   int
	BadAmounts int
}

// ReadLedgerCSV converts a semicolon-delimited G/L extract into a ledger
// table. Parsing is tolerant of the usual real-world damage: lazy quotes,
// rows with too few or too many fields, unparseable dates and amounts.
// Only a missing header or missing required columns fail the whole read.
func ReadLedgerCSV(r io.Reader) (*ledger.Table, ReadStats, error) {
	var stats ReadStats

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("empty file: no header row")
		}
		return nil, stats, fmt.Errorf("reading header row: %w", err)
	}

	// Map canonical column name -> position in the record.
	positions := make(map[string]int, len(header))
	for i, h := range header {
		if canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := positions[canonical]; !dup {
				positions[canonical] = i
			}
		}
	}
	for _, required := range []string{ledger.ColGLAccount, ledger.ColPostingDate, ledger.ColAmount} {
		if _, ok := positions[required]; !ok {
			return nil, stats, fmt.Errorf("required column %q not found in header", required)
		}
	}

	table := &ledger.Table{}
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, stats, fmt.Errorf("reading row %d: %w", stats.Rows+1, err)
		}

		field := func(name string) string {
			pos, ok := positions[name]
			if !ok || pos >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[pos])
		}

		row := ledger.Row{
			GLAccount:    field(ledger.ColGLAccount),
			BusinessArea: field(ledger.ColBusinessArea),
			VendorCode:   field(ledger.ColVendorCode),
			VendorName:   field(ledger.ColVendorName),
			CustomerCode: field(ledger.ColCustomerCode),
			CustomerName: field(ledger.ColCustomerName),
			DocumentType: field(ledger.ColDocumentType),
		}

		if posting, ok := parsePostingDate(field(ledger.ColPostingDate)); ok {
			row.PostingDate = &posting
		} else {
			stats.BadDates++
		}

		if amount, ok := parseAmount(field(ledger.ColAmount)); ok {
			row.Amount = amount
		} else {
			stats.BadAmounts++
		}

		table.Rows = append(table.Rows, row)
		stats.Rows++
	}

	return table, stats, nil
}

// parsePostingDate tries each known layout and reports whether any matched.
func parsePostingDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range postingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a monetary value into an exact decimal. Extracts come
// with either plain decimal points, thousands commas ("1,234.56"), or
// continental formatting ("1.234,56").
func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	if strings.Contains(s, ".") && strings.Contains(s, ",") && strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
		// Continental: dot is the thousands separator, comma the decimal mark.
		normalized := strings.ReplaceAll(s, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
		if d, err := decimal.NewFromString(normalized); err == nil {
			return d, true
		}
		return decimal.Zero, false
	}
	// A lone comma is a decimal mark unless it groups exactly three digits.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		parts := strings.SplitN(s, ",", 2)
		if len(parts[1]) != 3 {
			if d, err := decimal.NewFromString(parts[0] + "." + parts[1]); err == nil {
				return d, true
			}
		}
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "")); err == nil {
		return d, true
	}
	return decimal.Zero, false
}
