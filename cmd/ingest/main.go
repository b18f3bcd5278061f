package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/ledgerlens/ledgerlens/internal/logger"
	"github.com/ledgerlens/ledgerlens/internal/store"
)

// ingest converts a local G/L extract into the parquet snapshot the API
// server loads on startup. Useful for seeding a data directory without
// running the server.
func main() {
	var (
		input   = flag.String("input", "", "Path to the semicolon-delimited CSV extract (required)")
		dataDir = flag.String("data-dir", "./data", "Snapshot directory used by the API server")
	)
	flag.Parse()

	log := logger.New()

	if *input == "" {
		log.Fatal().Msg("-input is required")
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal().Err(err).Str("path", *input).Msg("Cannot open input file")
	}
	defer f.Close()

	table, stats, err := store.ReadLedgerCSV(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse extract")
	}

	log.Info().
		Int("rows", stats.Rows).
		Int("bad_dates", stats.BadDates).
		Int("bad_amounts", stats.BadAmounts).
		Msg("Extract parsed")

	snapshots, err := store.NewStore(*dataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot store")
	}

	snap, err := snapshots.Replace(table, filepath.Base(*input))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write snapshot")
	}

	log.Info().
		Str("dataset_id", snap.DatasetID).
		Str("path", snapshots.ParquetPath()).
		Int("gl_accounts", len(table.GLAccounts())).
		Msg("Snapshot written")
}
