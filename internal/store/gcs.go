package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSArchiver copies ingested artifacts (raw CSV uploads and the converted
// parquet snapshot) into a GCS bucket for retention. It assumes Application
// Default Credentials unless a credentials file is configured.
type GCSArchiver struct {
	bucket string
	opts   []option.ClientOption
}

// NewGCSArchiver creates an archiver for the given bucket. credentialsFile
// may be empty.
func NewGCSArchiver(bucket, credentialsFile string) *GCSArchiver {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return &GCSArchiver{bucket: bucket, opts: opts}
}

// URI returns the gs:// URI for an object in the archive bucket.
func (a *GCSArchiver) URI(objectName string) string {
	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName)
}

// UploadFile copies a local file to the bucket under objectName.
func (a *GCSArchiver) UploadFile(ctx context.Context, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx, a.opts...)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// UploadBytes writes raw bytes to the bucket under objectName.
func (a *GCSArchiver) UploadBytes(ctx context.Context, objectName, contentType string, data []byte) error {
	client, err := storage.NewClient(ctx, a.opts...)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write bytes to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// ListArchives lists object names in the bucket under the given prefix.
func (a *GCSArchiver) ListArchives(ctx context.Context, prefix string) ([]string, error) {
	client, err := storage.NewClient(ctx, a.opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	var names []string
	it := client.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing objects under %q: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}
