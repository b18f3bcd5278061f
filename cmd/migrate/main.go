package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	infraBQ "github.com/ledgerlens/ledgerlens/internal/infra/bigquery"
)

var (
	projectID = flag.String("project", "", "GCP project ID (required)")
	datasetID = flag.String("dataset", "ledger_archive", "BigQuery dataset ID")
	location  = flag.String("location", "EU", "BigQuery dataset location")
)

// migrate provisions the BigQuery dataset and tables the archive workers
// write into. Safe to run repeatedly; existing objects are left untouched.
func main() {
	flag.Parse()

	if *projectID == "" {
		log.Fatal("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("Failed to create BigQuery client: %v", err)
	}
	defer client.Close()

	dataset := client.Dataset(*datasetID)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: *location}); err != nil {
		if !alreadyExists(err) {
			log.Fatalf("Failed to create dataset %s: %v", *datasetID, err)
		}
		log.Printf("Dataset %s already exists", *datasetID)
	} else {
		log.Printf("Created dataset %s", *datasetID)
	}

	createTable(ctx, dataset, "datasets", infraBQ.DatasetRow{})
	createTable(ctx, dataset, "ledger_rows", infraBQ.LedgerRowRecord{})

	log.Println("Migration complete")
}

func createTable(ctx context.Context, dataset *bigquery.Dataset, name string, model interface{}) {
	schema, err := bigquery.InferSchema(model)
	if err != nil {
		log.Fatalf("Failed to infer schema for %s: %v", name, err)
	}

	table := dataset.Table(name)
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		if !alreadyExists(err) {
			log.Fatalf("Failed to create table %s: %v", name, err)
		}
		log.Printf("Table %s already exists", name)
		return
	}
	log.Printf("Created table %s", name)
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 409
}
