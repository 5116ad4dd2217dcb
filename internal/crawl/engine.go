package crawl

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/metrics"
)

// Options configures one Engine invocation.
type Options struct {
	// Cap is the maximum number of newly accepted records per run.
	Cap int
	// Reset discards checkpoint state before crawling.
	Reset bool
	// DryRun writes the shard but skips upload and checkpoint persist.
	DryRun bool
	// RemotePrefix is prepended to the shard file name in the dataset repo.
	RemotePrefix string
}

// Engine drives one crawl run: paging, dedup, cap enforcement, shard
// write, upload, and checkpoint commit.
type Engine struct {
	source     Source
	checkpoint Checkpoint
	writer     ShardWriter
	uploader   Uploader
	notifier   Notifier
	opts       Options
	logger     *zap.Logger
}

// NewEngine constructs an Engine. The notifier may be nil.
func NewEngine(
	source Source,
	checkpoint Checkpoint,
	writer ShardWriter,
	uploader Uploader,
	notifier Notifier,
	opts Options,
	logger *zap.Logger,
) (*Engine, error) {
	if opts.Cap <= 0 {
		return nil, fmt.Errorf("run cap must be > 0, got %d", opts.Cap)
	}
	if opts.RemotePrefix == "" {
		opts.RemotePrefix = "shards"
	}
	return &Engine{
		source:     source,
		checkpoint: checkpoint,
		writer:     writer,
		uploader:   uploader,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
	}, nil
}

// Run executes one full crawl cycle and returns its report. The checkpoint
// is only persisted after the uploader confirms the shard, so a crash or
// upload failure leaves prior progress untouched and the next run
// re-fetches the unpublished records.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := e.logger.With(zap.String("run_id", report.RunID))

	if e.opts.Reset {
		if err := e.checkpoint.Reset(); err != nil {
			return report, fmt.Errorf("reset checkpoint: %w", err)
		}
		logger.Info("Checkpoint state discarded for full re-crawl")
	}
	if err := e.checkpoint.Load(); err != nil {
		return report, fmt.Errorf("load checkpoint: %w", err)
	}

	buffer, err := e.page(ctx, logger, &report)
	if err != nil {
		return report, err
	}

	if len(buffer) == 0 {
		logger.Info("No new records since last run; no shard produced",
			zap.Int("pages", report.Pages),
			zap.Int("duplicates", report.Duplicates))
		return report, nil
	}

	index, err := e.writer.NextIndex(e.checkpoint.LastShard() + 1)
	if err != nil {
		return report, fmt.Errorf("allocate shard index: %w", err)
	}
	report.ShardIndex = index
	shardPath, err := e.writer.Write(buffer, report.ShardIndex)
	if err != nil {
		return report, fmt.Errorf("write shard %d: %w", report.ShardIndex, err)
	}
	report.ShardPath = shardPath
	logger.Info("Shard written",
		zap.Int("shard", report.ShardIndex),
		zap.String("path", shardPath),
		zap.Int("records", len(buffer)))

	if e.opts.DryRun {
		logger.Info("Dry run: skipping upload and checkpoint persist")
		return report, nil
	}

	meta := UploadMeta{
		RunID:      report.RunID,
		ShardIndex: report.ShardIndex,
		Records:    len(buffer),
	}
	remotePath := path.Join(e.opts.RemotePrefix, filepath.Base(shardPath))
	uri, err := e.uploader.Upload(ctx, shardPath, remotePath, meta)
	if err != nil {
		return report, fmt.Errorf("upload shard %d: %w", report.ShardIndex, err)
	}
	report.RemoteURI = uri
	metrics.ObserveShardUploaded(len(buffer))

	if err := e.checkpoint.Persist(report.ShardIndex); err != nil {
		return report, fmt.Errorf("persist checkpoint after upload: %w", err)
	}

	e.notify(ctx, logger, report)

	logger.Info("Run complete",
		zap.Int("accepted", report.Accepted),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("shard", report.ShardIndex),
		zap.String("remote_uri", uri))
	return report, nil
}

// page walks source windows until the cap is hit or the source is
// exhausted, returning the accepted records in fetch order.
func (e *Engine) page(ctx context.Context, logger *zap.Logger, report *Report) ([]Record, error) {
	var buffer []Record
	start := e.source.Resume(e.checkpoint.VisitedCount())
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl canceled: %w", err)
		}
		page, err := e.source.FetchPage(ctx, start)
		if err != nil {
			return nil, fmt.Errorf("fetch page at %d: %w", start, err)
		}
		report.Pages++
		metrics.ObservePageFetched()

		for _, rec := range page.Records {
			if e.checkpoint.Visited(rec.Identifier) {
				report.Duplicates++
				metrics.ObserveDuplicateSkipped()
				continue
			}
			buffer = append(buffer, rec)
			e.checkpoint.MarkVisited(rec.Identifier)
			report.Accepted++
			metrics.ObserveRecordAccepted()
			if report.Accepted >= e.opts.Cap {
				logger.Info("Run cap reached", zap.Int("cap", e.opts.Cap))
				return buffer, nil
			}
		}

		if !page.More {
			return buffer, nil
		}
		start = page.Next
	}
}

func (e *Engine) notify(ctx context.Context, logger *zap.Logger, report Report) {
	if e.notifier == nil {
		return
	}
	event := ShardEvent{
		RunID:       report.RunID,
		ShardIndex:  report.ShardIndex,
		Records:     report.Accepted,
		RemoteURI:   report.RemoteURI,
		CompletedAt: time.Now().UTC(),
	}
	if err := e.notifier.ShardPublished(ctx, event); err != nil {
		logger.Warn("Shard notification failed", zap.Error(err))
	}
}
