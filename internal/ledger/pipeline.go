package ledger

import (
	"errors"
	"time"
)

// ErrNoSnapshot is reported when a query arrives before any dataset has been
// ingested. It is a precondition failure for the caller to surface, not a
// pipeline fault.
var ErrNoSnapshot = errors.New("no dataset has been ingested yet")

// SnapshotSource hands the pipeline an immutable view of the current dataset.
// Implementations must return ErrNoSnapshot when nothing has been ingested
// and must never expose a partially written table.
type SnapshotSource interface {
	Current() (*Table, error)
}

// MappingSource provides the business-area to division lookup. Implementations
// degrade to an empty map when the mapping is unavailable; they never fail.
type MappingSource interface {
	Mapping() map[string]string
}

// ResultTable is one aggregate table plus its column names, ready for JSON.
type ResultTable struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// SummaryResult holds the two independent top-level aggregates.
type SummaryResult struct {
	Ageing   ResultTable `json:"ageing_table"`
	Division ResultTable `json:"division_table"`
}

// PartyResult holds the three independent deepest-level aggregates.
type PartyResult struct {
	Vendor       ResultTable `json:"vendor_table"`
	Customer     ResultTable `json:"customer_table"`
	DocumentType ResultTable `json:"document_type_table"`
}

// Pipeline composes snapshot loading, column derivation and aggregation for
// one query. Both sources are injected; the pipeline holds no mutable state
// of its own, so one instance serves concurrent requests.
type Pipeline struct {
	snapshots SnapshotSource
	mappings  MappingSource
}

// NewPipeline wires a query pipeline over the given sources.
func NewPipeline(snapshots SnapshotSource, mappings MappingSource) *Pipeline {
	return &Pipeline{snapshots: snapshots, mappings: mappings}
}

// derived loads the current snapshot, narrows it to one G/L account and
// computes the ageing and division columns. Zero surviving rows is a valid
// outcome; only a missing snapshot is an error.
func (p *Pipeline) derived(glAccount string, ref time.Time) ([]DerivedRow, error) {
	table, err := p.snapshots.Current()
	if err != nil {
		return nil, err
	}
	return Derive(table.FilterGLAccount(glAccount), ref, p.mappings.Mapping()), nil
}

// GLAccounts lists the distinct account codes in the current snapshot.
func (p *Pipeline) GLAccounts() ([]string, error) {
	table, err := p.snapshots.Current()
	if err != nil {
		return nil, err
	}
	return table.GLAccounts(), nil
}

// Preview returns the snapshot's column names and its first n rows, as a
// quick "is data loaded" diagnostic.
func (p *Pipeline) Preview(n int) (ResultTable, error) {
	table, err := p.snapshots.Current()
	if err != nil {
		return ResultTable{}, err
	}
	preview := ResultTable{Columns: Columns, Rows: []map[string]any{}}
	for i, r := range table.Rows {
		if i >= n {
			break
		}
		row := map[string]any{
			ColGLAccount:    r.GLAccount,
			ColAmount:       r.Amount,
			ColBusinessArea: r.BusinessArea,
			ColVendorCode:   r.VendorCode,
			ColVendorName:   r.VendorName,
			ColCustomerCode: r.CustomerCode,
			ColCustomerName: r.CustomerName,
			ColDocumentType: r.DocumentType,
		}
		if r.PostingDate != nil {
			row[ColPostingDate] = r.PostingDate.Format("2006-01-02")
		} else {
			row[ColPostingDate] = nil
		}
		preview.Rows = append(preview.Rows, row)
	}
	return preview, nil
}

// Summary computes the two top-level aggregates for one account: totals by
// ageing bucket and totals by division, each sorted ascending by its key.
func (p *Pipeline) Summary(glAccount string, ref time.Time) (SummaryResult, error) {
	rows, err := p.derived(glAccount, ref)
	if err != nil {
		return SummaryResult{}, err
	}

	byAgeing := Aggregate(rows, []string{ColAgeing}, nil)
	SortByKeys(byAgeing)
	byDivision := Aggregate(rows, []string{ColDivision}, nil)
	SortByKeys(byDivision)

	return SummaryResult{
		Ageing:   buildResult([]string{ColAgeing}, byAgeing),
		Division: buildResult([]string{ColDivision}, byDivision),
	}, nil
}

// Drilldown1 groups by (ageing bucket, division), ascending by both keys.
func (p *Pipeline) Drilldown1(glAccount string, ref time.Time) (ResultTable, error) {
	rows, err := p.derived(glAccount, ref)
	if err != nil {
		return ResultTable{}, err
	}
	keys := []string{ColAgeing, ColDivision}
	grouped := Aggregate(rows, keys, nil)
	SortByKeys(grouped)
	return buildResult(keys, grouped), nil
}

// Drilldown2 narrows to one (ageing bucket, division) pair and groups by
// business area, largest amount first.
func (p *Pipeline) Drilldown2(glAccount, ageing, division string, ref time.Time) (ResultTable, error) {
	rows, err := p.derived(glAccount, ref)
	if err != nil {
		return ResultTable{}, err
	}
	keys := []string{ColBusinessArea}
	grouped := Aggregate(rows, keys, []Filter{
		{Column: ColAgeing, Value: ageing},
		{Column: ColDivision, Value: division},
	})
	SortByTotalDesc(grouped)
	return buildResult(keys, grouped), nil
}

// Drilldown3 narrows to one ageing bucket and groups by (division, business
// area), ascending by both keys.
func (p *Pipeline) Drilldown3(glAccount, ageing string, ref time.Time) (ResultTable, error) {
	rows, err := p.derived(glAccount, ref)
	if err != nil {
		return ResultTable{}, err
	}
	keys := []string{ColDivision, ColBusinessArea}
	grouped := Aggregate(rows, keys, []Filter{{Column: ColAgeing, Value: ageing}})
	SortByKeys(grouped)
	return buildResult(keys, grouped), nil
}

// Drilldown4 narrows to one (ageing bucket, division, business area) triple
// and computes three independent aggregates: by vendor, by customer and by
// document type, each sorted largest amount first.
func (p *Pipeline) Drilldown4(glAccount, ageing, division, businessArea string, ref time.Time) (PartyResult, error) {
	rows, err := p.derived(glAccount, ref)
	if err != nil {
		return PartyResult{}, err
	}
	filters := []Filter{
		{Column: ColAgeing, Value: ageing},
		{Column: ColDivision, Value: division},
		{Column: ColBusinessArea, Value: businessArea},
	}

	vendorKeys := []string{ColVendorCode, ColVendorName}
	vendors := Aggregate(rows, vendorKeys, filters)
	SortByTotalDesc(vendors)

	customerKeys := []string{ColCustomerCode, ColCustomerName}
	customers := Aggregate(rows, customerKeys, filters)
	SortByTotalDesc(customers)

	docTypeKeys := []string{ColDocumentType}
	docTypes := Aggregate(rows, docTypeKeys, filters)
	SortByTotalDesc(docTypes)

	return PartyResult{
		Vendor:       buildResult(vendorKeys, vendors),
		Customer:     buildResult(customerKeys, customers),
		DocumentType: buildResult(docTypeKeys, docTypes),
	}, nil
}

func buildResult(keys []string, rows []AggregateRow) ResultTable {
	columns := make([]string, 0, len(keys)+1)
	columns = append(columns, keys...)
	columns = append(columns, ColAmount)

	result := ResultTable{Columns: columns, Rows: make([]map[string]any, 0, len(rows))}
	for _, r := range rows {
		row := make(map[string]any, len(columns))
		for i, k := range keys {
			row[k] = r.Keys[i]
		}
		row[ColAmount] = r.Total
		result.Rows = append(result.Rows, row)
	}
	return result
}
