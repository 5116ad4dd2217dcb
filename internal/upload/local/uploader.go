// Package local implements an Uploader that copies shards into a local
// directory. Useful for dev runs and tests; nothing leaves the machine.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
)

// Uploader copies shard files under a base directory.
type Uploader struct {
	baseDir string
}

// New creates a local Uploader rooted at baseDir.
func New(baseDir string) (*Uploader, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", baseDir, err)
	}
	return &Uploader{baseDir: baseDir}, nil
}

// Upload copies the shard file to baseDir/remotePath and returns a file://
// URI. Existing files are never overwritten; shards are immutable.
func (u *Uploader) Upload(_ context.Context, localPath, remotePath string, _ crawl.UploadMeta) (string, error) {
	if strings.TrimSpace(remotePath) == "" {
		return "", fmt.Errorf("remote path is required")
	}
	target := filepath.Join(u.baseDir, filepath.FromSlash(remotePath))

	cleanBase := filepath.Clean(u.baseDir)
	cleanTarget := filepath.Clean(target)
	if !strings.HasPrefix(cleanTarget, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected in %q", remotePath)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read shard file %s: %w", localPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create target dir: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("shard already published at %s", target)
		}
		return "", fmt.Errorf("create target file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write target file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close target file: %w", err)
	}
	return "file://" + target, nil
}
