// Package shard writes accepted records as line-delimited JSON shard files.
package shard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
)

// Writer serializes record batches into numbered JSONL files under a
// directory. Shard files are immutable once written.
type Writer struct {
	dir string
}

// NewWriter returns a Writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create shard dir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// FileName returns the canonical shard file name for an index.
func FileName(index int) string {
	return fmt.Sprintf("shard-%05d.jsonl", index)
}

// NextIndex returns the smallest index >= min whose shard file does not
// exist yet. After a checkpoint reset the counter restarts at zero while
// historical shard files survive; skipping past them keeps indices unique.
func (w *Writer) NextIndex(min int) (int, error) {
	if min < 1 {
		min = 1
	}
	for index := min; ; index++ {
		_, err := os.Stat(filepath.Join(w.dir, FileName(index)))
		if os.IsNotExist(err) {
			return index, nil
		}
		if err != nil {
			return 0, fmt.Errorf("stat shard %d: %w", index, err)
		}
	}
}

// Write serializes records in order, one JSON object per line, to the shard
// file for index. It refuses to overwrite an existing shard.
func (w *Writer) Write(records []crawl.Record, index int) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("refusing to write empty shard %d", index)
	}
	target := filepath.Join(w.dir, FileName(index))

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("shard %d already exists at %s", index, target)
		}
		return "", fmt.Errorf("create shard file %s: %w", target, err)
	}

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return "", fmt.Errorf("encode record %s: %w", rec.Identifier, err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush shard file %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close shard file %s: %w", target, err)
	}
	return target, nil
}
