package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet"
	"github.com/apache/arrow/go/v15/parquet/compress"
	"github.com/apache/arrow/go/v15/parquet/file"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/shopspring/decimal"
)

const parquetChunkSize = 64 * 1024

// All snapshot columns are nullable UTF-8. Amounts are stored as their
// decimal string representation so a write/read round trip loses nothing;
// posting dates as ISO strings, null when the source never parsed.
func snapshotSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(ledger.Columns))
	for i, c := range ledger.Columns {
		fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteParquet writes the table to path as a snappy-compressed parquet file.
func WriteParquet(path string, t *ledger.Table) error {
	schema := snapshotSchema()
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for _, r := range t.Rows {
		for i, c := range ledger.Columns {
			fb := builder.Field(i).(*array.StringBuilder)
			if v, ok := columnValue(r, c); ok {
				fb.Append(v)
			} else {
				fb.AppendNull()
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer table.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating parquet file: %w", err)
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(table, f, parquetChunkSize, props, pqarrow.DefaultWriterProps()); err != nil {
		f.Close()
		return fmt.Errorf("writing parquet table: %w", err)
	}
	// pqarrow.WriteTable closes the sink on success; a second Close reports
	// os.ErrClosed, which is not a write failure.
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func columnValue(r ledger.Row, column string) (string, bool) {
	switch column {
	case ledger.ColGLAccount:
		return r.GLAccount, true
	case ledger.ColPostingDate:
		if r.PostingDate == nil {
			return "", false
		}
		return r.PostingDate.Format("2006-01-02"), true
	case ledger.ColAmount:
		return r.Amount.String(), true
	case ledger.ColBusinessArea:
		return r.BusinessArea, true
	case ledger.ColVendorCode:
		return r.VendorCode, true
	case ledger.ColVendorName:
		return r.VendorName, true
	case ledger.ColCustomerCode:
		return r.CustomerCode, true
	case ledger.ColCustomerName:
		return r.CustomerName, true
	case ledger.ColDocumentType:
		return r.DocumentType, true
	}
	return "", false
}

// ReadParquet loads a snapshot file fully into memory.
func ReadParquet(ctx context.Context, path string) (*ledger.Table, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file: %w", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: parquetChunkSize}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("creating arrow reader: %w", err)
	}

	arrowTable, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading parquet table: %w", err)
	}
	defer arrowTable.Release()

	columns := make(map[string][]*string, len(ledger.Columns))
	for _, c := range ledger.Columns {
		values, err := stringColumn(arrowTable, c)
		if err != nil {
			return nil, err
		}
		columns[c] = values
	}

	n := int(arrowTable.NumRows())
	table := &ledger.Table{Rows: make([]ledger.Row, 0, n)}
	for i := 0; i < n; i++ {
		get := func(name string) string {
			if v := columns[name][i]; v != nil {
				return *v
			}
			return ""
		}

		row := ledger.Row{
			GLAccount:    get(ledger.ColGLAccount),
			BusinessArea: get(ledger.ColBusinessArea),
			VendorCode:   get(ledger.ColVendorCode),
			VendorName:   get(ledger.ColVendorName),
			CustomerCode: get(ledger.ColCustomerCode),
			CustomerName: get(ledger.ColCustomerName),
			DocumentType: get(ledger.ColDocumentType),
		}
		if v := columns[ledger.ColPostingDate][i]; v != nil {
			if posting, err := time.Parse("2006-01-02", *v); err == nil {
				row.PostingDate = &posting
			}
		}
		if v := columns[ledger.ColAmount][i]; v != nil {
			if amount, err := decimal.NewFromString(*v); err == nil {
				row.Amount = amount
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// stringColumn flattens one chunked string column into per-row values,
// nil for nulls.
func stringColumn(t arrow.Table, name string) ([]*string, error) {
	indices := t.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, fmt.Errorf("snapshot file has no column %q", name)
	}

	out := make([]*string, 0, t.NumRows())
	for _, chunk := range t.Column(indices[0]).Data().Chunks() {
		strs, ok := chunk.(*array.String)
		if !ok {
			return nil, fmt.Errorf("snapshot column %q is not a string column", name)
		}
		for i := 0; i < strs.Len(); i++ {
			if strs.IsNull(i) {
				out = append(out, nil)
				continue
			}
			v := strs.Value(i)
			out = append(out, &v)
		}
	}
	return out, nil
}
