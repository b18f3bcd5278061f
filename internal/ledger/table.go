package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names. Ingestion normalizes the various header spellings
// found in SAP extracts (RACCT, BUDAT, HSL, RBUSA, ...) to these names, so
// everything downstream of the snapshot speaks one schema.
const (
	ColGLAccount    = "gl_account"
	ColPostingDate  = "posting_date"
	ColAmount       = "amount"
	ColBusinessArea = "business_area"
	ColVendorCode   = "vendor_code"
	ColVendorName   = "vendor_name"
	ColCustomerCode = "customer_code"
	ColCustomerName = "customer_name"
	ColDocumentType = "document_type"

	// Derived per query, never persisted.
	ColAgeing   = "ageing"
	ColDivision = "division"
)

// Columns lists the persisted snapshot columns in canonical order.
var Columns = []string{
	ColGLAccount,
	ColPostingDate,
	ColAmount,
	ColBusinessArea,
	ColVendorCode,
	ColVendorName,
	ColCustomerCode,
	ColCustomerName,
	ColDocumentType,
}

// Row is one journal-entry line from a G/L extract.
type Row struct {
	GLAccount    string
	PostingDate  *time.Time // nil when the source string did not parse
	Amount       decimal.Decimal
	BusinessArea string
	VendorCode   string
	VendorName   string
	CustomerCode string
	CustomerName string
	DocumentType string
}

// Table is an ordered collection of rows sharing one schema. A Table is
// treated as an immutable snapshot once built; queries never modify it.
type Table struct {
	Rows []Row
}

// GLAccounts returns the distinct account codes present in the table,
// sorted ascending so repeated calls yield identical output.
func (t *Table) GLAccounts() []string {
	seen := make(map[string]struct{}, len(t.Rows))
	var accounts []string
	for _, r := range t.Rows {
		if _, ok := seen[r.GLAccount]; ok {
			continue
		}
		seen[r.GLAccount] = struct{}{}
		accounts = append(accounts, r.GLAccount)
	}
	sort.Strings(accounts)
	return accounts
}

// FilterGLAccount returns the rows posted to the given account, preserving
// input order. The receiver is left untouched.
func (t *Table) FilterGLAccount(glAccount string) []Row {
	var rows []Row
	for _, r := range t.Rows {
		if r.GLAccount == glAccount {
			rows = append(rows, r)
		}
	}
	return rows
}
