// Package crawl defines the core types and interfaces of the incremental
// crawl loop, plus the Engine that drives one invocation.
package crawl

import "time"

// SourceName is the provenance tag written into every published record.
const SourceName = "Open Data Tuchtrecht"

// Record is one disciplinary ruling. Identifier is stable across runs and
// uniquely determines the record; the remaining fields are the JSON shape
// published in shard files.
type Record struct {
	Identifier string `json:"-"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	Source     string `json:"source"`
}

// SourcePage is one window of records returned by a Source.
type SourcePage struct {
	Records []Record
	// Next is the start value for the following window.
	Next int
	// More reports whether further windows exist.
	More bool
}

// UploadMeta travels with a shard upload and ends up in the remote commit
// message and the published notification.
type UploadMeta struct {
	RunID      string
	ShardIndex int
	Records    int
}

// ShardEvent is published after a shard upload has been confirmed.
type ShardEvent struct {
	RunID       string    `json:"run_id"`
	ShardIndex  int       `json:"shard_index"`
	Records     int       `json:"records"`
	RemoteURI   string    `json:"remote_uri"`
	CompletedAt time.Time `json:"completed_at"`
}

// Report summarizes one finished run.
type Report struct {
	RunID      string
	Accepted   int
	Duplicates int
	Pages      int
	ShardIndex int
	ShardPath  string
	RemoteURI  string
}
