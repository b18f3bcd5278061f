package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerlens/ledgerlens/internal/api/handlers"
	"github.com/ledgerlens/ledgerlens/internal/api/middleware"
	"github.com/ledgerlens/ledgerlens/internal/config"
	infraBQ "github.com/ledgerlens/ledgerlens/internal/infra/bigquery"
	"github.com/ledgerlens/ledgerlens/internal/jobs"
	"github.com/ledgerlens/ledgerlens/internal/jobs/inmemory"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/logger"
	"github.com/ledgerlens/ledgerlens/internal/narrative"
	"github.com/ledgerlens/ledgerlens/internal/store"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Snapshot store; restore whatever the previous run ingested.
	snapshots, err := store.NewStore(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot store")
	}
	if err := snapshots.LoadExisting(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not restore previous snapshot; starting empty")
	}

	// Division mapping; a missing file only disables division resolution.
	mappings := store.NewMappingStore(log)
	if cfg.MappingPath != "" {
		if err := mappings.LoadFile(cfg.MappingPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.MappingPath).Msg("Could not load division mapping; all divisions resolve to Others")
		}
	} else {
		log.Warn().Msg("No mapping file configured - all divisions resolve to Others")
	}

	pipeline := ledger.NewPipeline(snapshots, mappings)

	var summarizer narrative.Summarizer = narrative.NoopSummarizer{}
	if cfg.NarrativeEnabled {
		summarizer = narrative.NewGeminiSummarizer(cfg.NarrativeModel)
		log.Info().Str("model", cfg.NarrativeModel).Msg("AI narrative enabled")
	}

	// Archive infrastructure. Both backends are optional and best-effort.
	var gcs *store.GCSArchiver
	if cfg.GCSBucket != "" {
		gcs = store.NewGCSArchiver(cfg.GCSBucket, cfg.GCSCredentialsFile)
		log.Info().Str("bucket", cfg.GCSBucket).Msg("GCS archiving enabled")
	}

	var bqArchiver *infraBQ.Archiver
	if cfg.BigQueryProject != "" {
		bqArchiver, err = infraBQ.NewArchiver(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery archiver")
		}
		defer bqArchiver.Close()
		log.Info().Str("project", cfg.BigQueryProject).Str("dataset", cfg.BigQueryDataset).Msg("BigQuery archiving enabled")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, cfg.ArchiveWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		archiveJob, ok := job.(*jobs.ArchiveDatasetJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		return archiveDataset(ctx, archiveJob, snapshots, gcs, bqArchiver, log)
	}

	go func() {
		log.Info().Int("workers", cfg.ArchiveWorkers).Msg("Starting archive workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Archive workers stopped with error")
		}
	}()

	var publisher jobs.Publisher
	if cfg.ArchiveEnabled() {
		publisher = jobQueue
	}

	uploadsDir := filepath.Join(cfg.DataDir, "uploads")
	ledgerHandler := handlers.NewLedgerHandler(pipeline, snapshots, publisher, summarizer, uploadsDir, cfg.PreviewRows, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ledgerHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	getOnly := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				fn(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		}
	}

	mux.HandleFunc("/api/gl-accounts", getOnly(ledgerHandler.GLAccounts))
	mux.HandleFunc("/api/preview", getOnly(ledgerHandler.Preview))
	mux.HandleFunc("/api/summary", getOnly(ledgerHandler.Summary))
	mux.HandleFunc("/api/drilldown1", getOnly(ledgerHandler.Drilldown1))
	mux.HandleFunc("/api/drilldown2", getOnly(ledgerHandler.Drilldown2))
	mux.HandleFunc("/api/drilldown3", getOnly(ledgerHandler.Drilldown3))
	mux.HandleFunc("/api/drilldown4", getOnly(ledgerHandler.Drilldown4))
	mux.HandleFunc("/api/jobs", getOnly(jobsHandler.ListJobs))

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", handlers.Health)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// archiveDataset copies one dataset's artifacts to the configured backends.
// Either backend may be nil; the job succeeds if every configured backend
// accepted the data.
func archiveDataset(ctx context.Context, job *jobs.ArchiveDatasetJob, snapshots *store.Store, gcs *store.GCSArchiver, bq *infraBQ.Archiver, log zerolog.Logger) error {
	log.Info().
		Str("job_id", job.JobID).
		Str("dataset_id", job.DatasetID).
		Msg("Archiving dataset")

	gcsURI := ""
	if gcs != nil {
		if job.CSVPath != "" {
			object := fmt.Sprintf("uploads/%s/%s", job.DatasetID, job.Filename)
			if err := gcs.UploadFile(ctx, object, job.CSVPath); err != nil {
				return fmt.Errorf("uploading CSV: %w", err)
			}
			gcsURI = gcs.URI(object)
		}
		if job.ParquetPath != "" {
			object := fmt.Sprintf("snapshots/%s/ledger.parquet", job.DatasetID)
			if err := gcs.UploadFile(ctx, object, job.ParquetPath); err != nil {
				return fmt.Errorf("uploading parquet: %w", err)
			}
		}
	}

	if bq != nil {
		snap, ok := snapshots.CurrentSnapshot()
		if !ok || snap.DatasetID != job.DatasetID {
			// A newer upload replaced this dataset before the job ran; its
			// rows are gone from memory, so only the files were archived.
			log.Warn().Str("dataset_id", job.DatasetID).Msg("Dataset superseded before BigQuery archive; skipping rows")
			return nil
		}
		if err := bq.ArchiveSnapshot(ctx, snap, gcsURI); err != nil {
			return fmt.Errorf("archiving to BigQuery: %w", err)
		}
	}

	log.Info().Str("dataset_id", job.DatasetID).Msg("Dataset archived")
	return nil
}
