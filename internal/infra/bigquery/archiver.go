package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/store"
)

const (
	datasetsTable   = "datasets"
	ledgerRowsTable = "ledger_rows"

	// insertBatchSize keeps inserter.Put requests under the streaming
	// payload limit for wide extracts.
	insertBatchSize = 500
)

// DatasetRow represents one ingested dataset in BigQuery.
type DatasetRow struct {
	DatasetID  string    `bigquery:"dataset_id"` // REQUIRED
	Filename   string    `bigquery:"filename"`   // NULLABLE
	RowCount   int64     `bigquery:"row_count"`  // REQUIRED
	GCSURI     string    `bigquery:"gcs_uri"`    // NULLABLE
	UploadedTS time.Time `bigquery:"uploaded_ts"`
	ArchivedTS time.Time `bigquery:"archived_ts"`
}

// LedgerRowRecord represents one journal entry line in BigQuery.
type LedgerRowRecord struct {
	DatasetID string `bigquery:"dataset_id"` // REQUIRED

	GLAccount   string            `bigquery:"gl_account"`   // REQUIRED
	PostingDate bigquery.NullDate `bigquery:"posting_date"` // NULLABLE
	Amount      *big.Rat          `bigquery:"amount"`       // REQUIRED NUMERIC

	BusinessArea string `bigquery:"business_area"`
	VendorCode   string `bigquery:"vendor_code"`
	VendorName   string `bigquery:"vendor_name"`
	CustomerCode string `bigquery:"customer_code"`
	CustomerName string `bigquery:"customer_name"`
	DocumentType string `bigquery:"document_type"`
}

// Archiver streams ingested datasets into BigQuery for long-term retention.
// The hot query path never reads from BigQuery; this is write-only history.
type Archiver struct {
	client  *bigquery.Client
	dataset string
}

// NewArchiver creates an archiver writing into the given dataset.
func NewArchiver(ctx context.Context, projectID, dataset string) (*Archiver, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewArchiver: bigquery client: %w", err)
	}
	return &Archiver{client: client, dataset: dataset}, nil
}

// NewArchiverWithClient wraps an existing client, mainly for tests.
func NewArchiverWithClient(client *bigquery.Client, dataset string) *Archiver {
	return &Archiver{client: client, dataset: dataset}
}

// Close releases the underlying client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// ArchiveSnapshot writes the dataset record and all its ledger rows.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, snap *store.Snapshot, gcsURI string) error {
	if snap == nil || snap.Table == nil {
		return fmt.Errorf("ArchiveSnapshot: nil snapshot")
	}

	datasetRow := &DatasetRow{
		DatasetID:  snap.DatasetID,
		Filename:   snap.Filename,
		RowCount:   int64(len(snap.Table.Rows)),
		GCSURI:     gcsURI,
		UploadedTS: snap.UploadedAt,
		ArchivedTS: time.Now(),
	}
	inserter := a.client.Dataset(a.dataset).Table(datasetsTable).Inserter()
	if err := inserter.Put(ctx, []*DatasetRow{datasetRow}); err != nil {
		return fmt.Errorf("ArchiveSnapshot: inserting dataset record: %w", err)
	}

	return a.insertLedgerRows(ctx, snap.DatasetID, snap.Table.Rows)
}

func (a *Archiver) insertLedgerRows(ctx context.Context, datasetID string, rows []ledger.Row) error {
	inserter := a.client.Dataset(a.dataset).Table(ledgerRowsTable).Inserter()

	records := make([]*LedgerRowRecord, 0, insertBatchSize)
	flush := func() error {
		if len(records) == 0 {
			return nil
		}
		if err := inserter.Put(ctx, records); err != nil {
			return fmt.Errorf("ArchiveSnapshot: inserting ledger rows: %w", err)
		}
		records = records[:0]
		return nil
	}

	for _, r := range rows {
		records = append(records, toRecord(datasetID, r))
		if len(records) >= insertBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func toRecord(datasetID string, r ledger.Row) *LedgerRowRecord {
	rec := &LedgerRowRecord{
		DatasetID:    datasetID,
		GLAccount:    r.GLAccount,
		Amount:       r.Amount.Rat(),
		BusinessArea: r.BusinessArea,
		VendorCode:   r.VendorCode,
		VendorName:   r.VendorName,
		CustomerCode: r.CustomerCode,
		CustomerName: r.CustomerName,
		DocumentType: r.DocumentType,
	}
	if r.PostingDate != nil {
		rec.PostingDate = bigquery.NullDate{Date: civil.DateOf(*r.PostingDate), Valid: true}
	}
	return rec
}
