package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings for the API server and workers. Every field
// can be set through the environment, e.g. PORT, DATA_DIR, GCS_BUCKET.
type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// MappingPath points at the division mapping file (.xlsx or .csv).
	// Optional; without it every business area resolves to "Others".
	MappingPath string `envconfig:"MAPPING_PATH"`

	// PreviewRows caps the number of rows returned by the preview endpoint.
	PreviewRows int `envconfig:"PREVIEW_ROWS" default:"5"`

	// GCSBucket enables archive uploads when set.
	GCSBucket          string `envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`

	// BigQueryProject enables row-level archiving when set.
	BigQueryProject string `envconfig:"BIGQUERY_PROJECT"`
	BigQueryDataset string `envconfig:"BIGQUERY_DATASET" default:"ledger_archive"`

	NarrativeEnabled bool   `envconfig:"NARRATIVE_ENABLED"`
	NarrativeModel   string `envconfig:"NARRATIVE_MODEL" default:"gemini-2.5-flash"`

	ArchiveWorkers int `envconfig:"ARCHIVE_WORKERS" default:"2"`
	JobQueueSize   int `envconfig:"JOB_QUEUE_SIZE" default:"16"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.PreviewRows < 1 {
		return nil, fmt.Errorf("PREVIEW_ROWS must be positive, got %d", c.PreviewRows)
	}
	if c.ArchiveWorkers < 1 {
		c.ArchiveWorkers = 1
	}
	return &c, nil
}

// ArchiveEnabled reports whether any archive backend is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.GCSBucket != "" || c.BigQueryProject != ""
}
