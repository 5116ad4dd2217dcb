package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/app"
	"github.com/vgassen/tuchtrecht-crawler/internal/checkpoint"
	"github.com/vgassen/tuchtrecht-crawler/internal/config"
	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
	"github.com/vgassen/tuchtrecht-crawler/internal/frbr"
	"github.com/vgassen/tuchtrecht-crawler/internal/shard"
	"github.com/vgassen/tuchtrecht-crawler/internal/sru"
)

// crawlFlags holds the per-invocation overrides.
type crawlFlags struct {
	reset  bool
	dryRun bool
	limit  int
	source string
}

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one incremental crawl cycle",
		Long: `Fetches records the checkpoint has not seen yet, up to the run
limit, writes them as one JSONL shard, and uploads the shard to the
configured dataset repository. With no new records the run exits
successfully without producing a shard.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runCrawl(cmd, appInstance, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.reset, "reset", false, "discard checkpoint state and re-crawl from scratch")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "write the shard but skip upload and checkpoint persist")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "max new records this run (overrides crawl.limit)")
	cmd.Flags().StringVar(&flags.source, "source", "", "record source: sru or frbr (overrides crawl.source)")

	return cmd
}

func runCrawl(cmd *cobra.Command, appInstance *app.App, flags *crawlFlags) error {
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	limit := cfg.Crawl.Limit
	if flags.limit > 0 {
		limit = flags.limit
	}
	sourceName := cfg.Crawl.Source
	if flags.source != "" {
		sourceName = flags.source
	}

	ckpt := checkpoint.NewStore(cfg.CheckpointDirFor(sourceName), logger)

	source, err := buildSource(sourceName, cfg, ckpt, logger)
	if err != nil {
		return err
	}

	writer, err := shard.NewWriter(cfg.Crawl.ShardDir)
	if err != nil {
		return fmt.Errorf("init shard writer: %w", err)
	}

	engine, err := crawl.NewEngine(
		source,
		ckpt,
		writer,
		appInstance.Uploader(),
		appInstance.Notifier(),
		crawl.Options{
			Cap:    limit,
			Reset:  flags.reset,
			DryRun: flags.dryRun,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	report, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}

	logger.Info("Crawl command finished",
		zap.String("run_id", report.RunID),
		zap.Int("accepted", report.Accepted),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("shard", report.ShardIndex))
	return nil
}

// buildSource wires the configured record source. The frbr discoverer gets
// a visited callback so already-published documents are not re-downloaded.
func buildSource(name string, cfg config.Config, ckpt *checkpoint.Store, logger *zap.Logger) (crawl.Source, error) {
	switch name {
	case config.SourceSRU:
		client, err := sru.NewClient(sru.Config{
			BaseURL:      cfg.SRU.BaseURL,
			Query:        cfg.SRU.Query,
			RecordSchema: cfg.SRU.RecordSchema,
			PageSize:     cfg.SRU.PageSize,
			Timeout:      cfg.SRUTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init sru client: %w", err)
		}
		return client, nil
	case config.SourceFRBR:
		discoverer, err := frbr.NewDiscoverer(frbr.Config{
			BaseURL:   cfg.FRBR.BaseURL,
			PageSize:  cfg.FRBR.PageSize,
			Timeout:   cfg.FRBRTimeout(),
			UserAgent: cfg.FRBR.UserAgent,
		}, ckpt.Visited, logger)
		if err != nil {
			return nil, fmt.Errorf("init frbr discoverer: %w", err)
		}
		return discoverer, nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
