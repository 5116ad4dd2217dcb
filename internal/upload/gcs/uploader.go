// Package gcs provides an Uploader backed by Google Cloud Storage, for
// deployments that mirror shards into a bucket instead of a dataset hub.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
	"github.com/vgassen/tuchtrecht-crawler/internal/metrics"
)

const contentType = "application/x-ndjson"

// Config captures the parameters required to write into GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Uploader writes shard files into a configured bucket.
type Uploader struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed Uploader.
func New(client *storage.Client, cfg Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{client: client, cfg: cfg}, nil
}

// Upload copies the shard file into the bucket and returns a gs:// URI.
func (u *Uploader) Upload(ctx context.Context, localPath, remotePath string, meta crawl.UploadMeta) (string, error) {
	if strings.TrimSpace(remotePath) == "" {
		return "", fmt.Errorf("remote path is required")
	}
	if u.cfg.Prefix != "" {
		remotePath = path.Join(u.cfg.Prefix, path.Base(remotePath))
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open shard file %s: %w", localPath, err)
	}
	defer f.Close()

	writer := u.client.Bucket(u.cfg.Bucket).Object(remotePath).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{
		"run-id":      meta.RunID,
		"shard-index": fmt.Sprintf("%d", meta.ShardIndex),
	}

	n, err := io.Copy(writer, f)
	if err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	metrics.ObserveUploadBytes(int(n))
	return fmt.Sprintf("gs://%s/%s", u.cfg.Bucket, remotePath), nil
}
