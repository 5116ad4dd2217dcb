// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/config"
	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
	"github.com/vgassen/tuchtrecht-crawler/internal/logging"
	"github.com/vgassen/tuchtrecht-crawler/internal/metrics"
	notifymemory "github.com/vgassen/tuchtrecht-crawler/internal/notify/memory"
	notifypubsub "github.com/vgassen/tuchtrecht-crawler/internal/notify/pubsub"
	uploadgcs "github.com/vgassen/tuchtrecht-crawler/internal/upload/gcs"
	uploadhf "github.com/vgassen/tuchtrecht-crawler/internal/upload/huggingface"
	uploadlocal "github.com/vgassen/tuchtrecht-crawler/internal/upload/local"
)

// App holds the shared, long-lived services for one invocation: logger,
// uploader provider, notifier, and the optional metrics listener. It is
// initialized once at startup and injected into the commands that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	uploader crawl.Uploader
	notifier crawl.Notifier

	gcsClient    *storage.Client
	pubsubClient *pubsub.Client
	metricsSrv   *http.Server
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Uploader returns the configured shard uploader.
func (a *App) Uploader() crawl.Uploader {
	return a.uploader
}

// Notifier returns the shard-published notifier.
func (a *App) Notifier() crawl.Notifier {
	return a.notifier
}

// New creates and initializes an App from configuration. It fails fast on
// missing credentials, before any crawl network activity.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	if err := a.initUploader(ctx); err != nil {
		return nil, err
	}
	if err := a.initNotifier(ctx); err != nil {
		return nil, err
	}
	if cfg.Metrics.Addr != "" {
		a.metricsSrv = metrics.Serve(cfg.Metrics.Addr, logger)
	}

	logger.Info("Application services initialized",
		zap.String("upload_provider", cfg.Upload.Provider),
		zap.String("source", cfg.Crawl.Source))
	return a, nil
}

func (a *App) initUploader(ctx context.Context) error {
	switch a.cfg.Upload.Provider {
	case config.ProviderHuggingFace:
		client, err := uploadhf.NewClient(uploadhf.Config{
			Endpoint: a.cfg.Dataset.Endpoint,
			Repo:     a.cfg.Dataset.Repo,
			Token:    a.cfg.Dataset.Token,
			Private:  a.cfg.Dataset.Private,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("init huggingface uploader: %w", err)
		}
		a.uploader = client
	case config.ProviderGCS:
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.gcsClient = gcsClient
		uploader, err := uploadgcs.New(gcsClient, uploadgcs.Config{
			Bucket: a.cfg.GCS.Bucket,
			Prefix: a.cfg.GCS.Prefix,
		})
		if err != nil {
			return fmt.Errorf("init gcs uploader: %w", err)
		}
		a.uploader = uploader
	case config.ProviderLocal:
		uploader, err := uploadlocal.New(a.cfg.Upload.LocalDir)
		if err != nil {
			return fmt.Errorf("init local uploader: %w", err)
		}
		a.uploader = uploader
	default:
		return fmt.Errorf("unknown upload provider %q", a.cfg.Upload.Provider)
	}
	return nil
}

func (a *App) initNotifier(ctx context.Context) error {
	if a.cfg.PubSub.ProjectID == "" {
		a.notifier = notifymemory.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	a.pubsubClient = client
	notifier, err := notifypubsub.New(client.Topic(a.cfg.PubSub.Topic))
	if err != nil {
		return fmt.Errorf("init pubsub notifier: %w", err)
	}
	a.notifier = notifier
	return nil
}

// Close shuts the services down gracefully.
func (a *App) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("Metrics listener shutdown failed", zap.Error(err))
		}
		cancel()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("Pub/Sub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("GCS client close failed", zap.Error(err))
		}
	}
	// Sync flushes buffered log entries; stderr sync errors are expected on
	// some platforms and safe to ignore.
	_ = a.logger.Sync()
}
