package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerlens/ledgerlens/internal/api/middleware"
	"github.com/ledgerlens/ledgerlens/internal/jobs"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/narrative"
	"github.com/ledgerlens/ledgerlens/internal/store"
)

const (
	// maxUploadBytes caps uploaded extracts at 256 MiB.
	maxUploadBytes = 256 << 20

	msgNoData = "No data uploaded yet"
)

// LedgerHandler serves the upload and analytics endpoints.
type LedgerHandler struct {
	pipeline   *ledger.Pipeline
	snapshots  *store.Store
	publisher  jobs.Publisher
	summarizer narrative.Summarizer

	uploadsDir  string
	previewRows int
	log         zerolog.Logger
}

// NewLedgerHandler creates the analytics handler. publisher may be nil when
// archiving is disabled; summarizer may be nil when narratives are disabled.
func NewLedgerHandler(pipeline *ledger.Pipeline, snapshots *store.Store, publisher jobs.Publisher, summarizer narrative.Summarizer, uploadsDir string, previewRows int, log zerolog.Logger) *LedgerHandler {
	if summarizer == nil {
		summarizer = narrative.NoopSummarizer{}
	}
	if previewRows < 1 {
		previewRows = 5
	}
	return &LedgerHandler{
		pipeline:    pipeline,
		snapshots:   snapshots,
		publisher:   publisher,
		summarizer:  summarizer,
		uploadsDir:  uploadsDir,
		previewRows: previewRows,
		log:         log,
	}
}

// Upload handles POST /api/upload. The uploaded semicolon-delimited extract
// replaces the current dataset in full.
func (h *LedgerHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A CSV file is required in the 'file' field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		middleware.WriteError(w, http.StatusBadRequest, "Only .csv files are accepted")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	table, stats, err := store.ReadLedgerCSV(bytes.NewReader(raw))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Could not parse CSV: "+err.Error())
		return
	}

	snap, err := h.snapshots.Replace(table, header.Filename)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to persist snapshot")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store dataset")
		return
	}

	h.enqueueArchive(r, snap, raw)

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"dataset_id":  snap.DatasetID,
		"filename":    snap.Filename,
		"rows":        stats.Rows,
		"bad_dates":   stats.BadDates,
		"bad_amounts": stats.BadAmounts,
		"gl_accounts": table.GLAccounts(),
	})
}

// enqueueArchive writes the raw CSV next to the snapshot and publishes a
// best-effort archive job. Failures are logged and swallowed; the upload has
// already succeeded.
func (h *LedgerHandler) enqueueArchive(r *http.Request, snap *store.Snapshot, raw []byte) {
	if h.publisher == nil {
		return
	}

	csvPath := ""
	if h.uploadsDir != "" {
		if err := os.MkdirAll(h.uploadsDir, 0o755); err == nil {
			csvPath = filepath.Join(h.uploadsDir, snap.DatasetID+".csv")
			if err := os.WriteFile(csvPath, raw, 0o644); err != nil {
				h.log.Warn().Err(err).Msg("Failed to stage CSV for archiving")
				csvPath = ""
			}
		}
	}

	job := &jobs.ArchiveDatasetJob{
		DatasetID:   snap.DatasetID,
		Filename:    snap.Filename,
		CSVPath:     csvPath,
		ParquetPath: h.snapshots.ParquetPath(),
	}
	if err := h.publisher.PublishArchiveDataset(r.Context(), job); err != nil {
		h.log.Warn().Err(err).Str("dataset_id", snap.DatasetID).Msg("Failed to enqueue archive job")
		return
	}
	h.log.Info().Str("job_id", job.JobID).Str("dataset_id", snap.DatasetID).Msg("Archive job enqueued")
}

// GLAccounts handles GET /api/gl-accounts
func (h *LedgerHandler) GLAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.pipeline.GLAccounts()
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"gl_accounts": accounts,
		"count":       len(accounts),
	})
}

// Preview handles GET /api/preview
func (h *LedgerHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.pipeline.Preview(h.previewRows)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, preview)
}

// Summary handles GET /api/summary?gl_account=...&reference_date=...
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	glAccount, ref, ok := h.queryParams(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.Summary(glAccount, ref)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"ageing_table":   result.Ageing,
		"division_table": result.Division,
		"ai_summary":     h.summarizer.Summarize(r.Context(), glAccount, &result),
	})
}

// Drilldown1 handles GET /api/drilldown1?gl_account=...
func (h *LedgerHandler) Drilldown1(w http.ResponseWriter, r *http.Request) {
	glAccount, ref, ok := h.queryParams(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.Drilldown1(glAccount, ref)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Drilldown2 handles GET /api/drilldown2?gl_account=...&ageing=...&division=...
func (h *LedgerHandler) Drilldown2(w http.ResponseWriter, r *http.Request) {
	glAccount, ref, ok := h.queryParams(w, r)
	if !ok {
		return
	}
	ageing, division := r.URL.Query().Get("ageing"), r.URL.Query().Get("division")
	if ageing == "" || division == "" {
		middleware.WriteError(w, http.StatusBadRequest, "ageing and division are required")
		return
	}

	result, err := h.pipeline.Drilldown2(glAccount, ageing, division, ref)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Drilldown3 handles GET /api/drilldown3?gl_account=...&ageing=...
func (h *LedgerHandler) Drilldown3(w http.ResponseWriter, r *http.Request) {
	glAccount, ref, ok := h.queryParams(w, r)
	if !ok {
		return
	}
	ageing := r.URL.Query().Get("ageing")
	if ageing == "" {
		middleware.WriteError(w, http.StatusBadRequest, "ageing is required")
		return
	}

	result, err := h.pipeline.Drilldown3(glAccount, ageing, ref)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Drilldown4 handles GET /api/drilldown4?gl_account=...&ageing=...&division=...&business_area=...
func (h *LedgerHandler) Drilldown4(w http.ResponseWriter, r *http.Request) {
	glAccount, ref, ok := h.queryParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	ageing, division, businessArea := q.Get("ageing"), q.Get("division"), q.Get("business_area")
	if ageing == "" || division == "" || businessArea == "" {
		middleware.WriteError(w, http.StatusBadRequest, "ageing, division and business_area are required")
		return
	}

	result, err := h.pipeline.Drilldown4(glAccount, ageing, division, businessArea, ref)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// queryParams validates the parameters shared by every analytics endpoint:
// gl_account is required, reference_date is optional and defaults to today.
func (h *LedgerHandler) queryParams(w http.ResponseWriter, r *http.Request) (string, time.Time, bool) {
	q := r.URL.Query()

	glAccount := q.Get("gl_account")
	if glAccount == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gl_account is required")
		return "", time.Time{}, false
	}

	ref := time.Now()
	if raw := q.Get("reference_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "reference_date must be YYYY-MM-DD")
			return "", time.Time{}, false
		}
		ref = parsed
	}
	return glAccount, ref, true
}

func (h *LedgerHandler) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrNoSnapshot) {
		middleware.WriteError(w, http.StatusBadRequest, msgNoData)
		return
	}
	h.log.Error().Err(err).Msg("Query failed")
	middleware.WriteError(w, http.StatusInternalServerError, "Query failed")
}

// JobsHandler serves job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.JobFilter{
		DatasetID: q.Get("dataset_id"),
		Status:    jobs.JobStatus(q.Get("status")),
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJob handles GET /api/jobs/{jobID}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
