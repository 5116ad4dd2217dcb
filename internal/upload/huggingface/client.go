// Package huggingface implements the Uploader against the Hugging Face
// Hub commit API for dataset repositories.
package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
	"github.com/vgassen/tuchtrecht-crawler/internal/metrics"
)

const defaultEndpoint = "https://huggingface.co"

// Config identifies the dataset repository and its credential.
type Config struct {
	Endpoint string
	Repo     string
	Token    string
	Private  bool
	Timeout  time.Duration
}

// Client pushes shard files into a dataset repository. Each upload is one
// commit on the main revision.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Repo == "" {
		return nil, fmt.Errorf("dataset repo is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("dataset token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Upload creates the dataset repository if needed, then commits the shard
// file at remotePath. It returns the resolve URL of the uploaded file.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, meta crawl.UploadMeta) (string, error) {
	if err := c.ensureRepo(ctx); err != nil {
		return "", err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read shard file %s: %w", localPath, err)
	}

	payload, err := commitPayload(remotePath, data, meta)
	if err != nil {
		return "", err
	}

	commitURL := fmt.Sprintf("%s/api/datasets/%s/commit/main", c.cfg.Endpoint, c.cfg.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, commitURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build commit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("commit shard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("hub rejected commit with %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	metrics.ObserveUploadBytes(len(data))
	uri := fmt.Sprintf("%s/datasets/%s/resolve/main/%s", c.cfg.Endpoint, c.cfg.Repo, remotePath)
	c.logger.Info("Shard committed to dataset repo",
		zap.String("repo", c.cfg.Repo),
		zap.String("path", remotePath),
		zap.Int("bytes", len(data)))
	return uri, nil
}

// ensureRepo creates the dataset repository when it does not exist yet,
// matching the exist_ok semantics of the deployment scripts.
func (c *Client) ensureRepo(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"type":    "dataset",
		"name":    c.cfg.Repo,
		"private": c.cfg.Private,
	})
	if err != nil {
		return fmt.Errorf("marshal create-repo request: %w", err)
	}

	createURL := c.cfg.Endpoint + "/api/repos/create"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, createURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create-repo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create dataset repo: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Repo already exists.
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("create dataset repo failed with %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
}

// commitPayload builds the NDJSON body of one commit: a header operation
// followed by a base64-encoded file operation.
func commitPayload(remotePath string, data []byte, meta crawl.UploadMeta) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	header := map[string]any{
		"key": "header",
		"value": map[string]any{
			"summary":     fmt.Sprintf("Add shard %d", meta.ShardIndex),
			"description": fmt.Sprintf("%d records, run %s", meta.Records, meta.RunID),
		},
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("encode commit header: %w", err)
	}

	file := map[string]any{
		"key": "file",
		"value": map[string]any{
			"path":     remotePath,
			"content":  base64.StdEncoding.EncodeToString(data),
			"encoding": "base64",
		},
	}
	if err := enc.Encode(file); err != nil {
		return nil, fmt.Errorf("encode commit file: %w", err)
	}
	return buf.Bytes(), nil
}
