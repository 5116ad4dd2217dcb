package crawl

import "context"

// Source pages through a remote record listing.
type Source interface {
	// Resume derives the start value for the first window from the number
	// of identifiers already visited in prior runs.
	Resume(visited int) int
	// FetchPage returns the window of records beginning at start (1-based).
	// Transport and non-2xx failures surface as errors; malformed entries
	// within a page are skipped by the implementation, not reported here.
	FetchPage(ctx context.Context, start int) (SourcePage, error)
}

// Checkpoint persists the visited set and last shard index across runs.
type Checkpoint interface {
	// Load reads prior state. Missing or corrupt files yield empty state,
	// never an error that aborts the run.
	Load() error
	// Visited reports whether id has been seen, in this run or a prior one.
	Visited(id string) bool
	// MarkVisited records id as seen in memory. Idempotent.
	MarkVisited(id string)
	// VisitedCount returns the current size of the visited set.
	VisitedCount() int
	// LastShard returns the index of the last persisted shard.
	LastShard() int
	// Persist durably writes identifiers marked since Load plus the new
	// shard counter value.
	Persist(lastShard int) error
	// Reset discards all checkpoint state on disk and in memory.
	Reset() error
}

// ShardWriter serializes accepted records into one numbered shard file.
type ShardWriter interface {
	// NextIndex returns the first index >= min that is free to write.
	// Shard files are immutable; indices are never reused, even after a
	// checkpoint reset restarts the counter.
	NextIndex(min int) (int, error)
	Write(records []Record, index int) (string, error)
}

// Uploader pushes a completed shard file to the remote dataset repository
// and returns the remote URI.
type Uploader interface {
	Upload(ctx context.Context, localPath, remotePath string, meta UploadMeta) (string, error)
}

// Notifier announces a confirmed shard publication. Failures are logged,
// never fatal.
type Notifier interface {
	ShardPublished(ctx context.Context, event ShardEvent) error
}
