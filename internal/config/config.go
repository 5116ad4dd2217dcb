// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Upload provider names accepted in upload.provider.
const (
	ProviderHuggingFace = "huggingface"
	ProviderGCS         = "gcs"
	ProviderLocal       = "local"
)

// Source names accepted in crawl.source.
const (
	SourceSRU  = "sru"
	SourceFRBR = "frbr"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	SRU     SRUConfig     `mapstructure:"sru"`
	FRBR    FRBRConfig    `mapstructure:"frbr"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Upload  UploadConfig  `mapstructure:"upload"`
	GCS     GCSConfig     `mapstructure:"gcs"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlConfig bounds one crawler invocation.
type CrawlConfig struct {
	Limit         int    `mapstructure:"limit"`
	Source        string `mapstructure:"source"`
	ShardDir      string `mapstructure:"shard_dir"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
}

// SRUConfig describes the SRU searchRetrieve endpoint.
type SRUConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Query          string `mapstructure:"query"`
	RecordSchema   string `mapstructure:"record_schema"`
	PageSize       int    `mapstructure:"page_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FRBRConfig describes the repository browse pages used by the frbr source.
type FRBRConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PageSize       int    `mapstructure:"page_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// DatasetConfig identifies the remote dataset repository and its credential.
type DatasetConfig struct {
	Repo     string `mapstructure:"repo"`
	Token    string `mapstructure:"token"`
	Private  bool   `mapstructure:"private"`
	Endpoint string `mapstructure:"endpoint"`
}

// UploadConfig selects the uploader provider.
type UploadConfig struct {
	Provider string `mapstructure:"provider"`
	LocalDir string `mapstructure:"local_dir"`
}

// GCSConfig sets the bucket for the gcs uploader provider.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for shard-published notifications.
// Leaving ProjectID empty disables the notifier.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig controls the optional Prometheus listener.
// An empty Addr means no listener is started.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TUCHTRECHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The CI deployment historically exported HF_* names; keep accepting them.
	bind(v, "dataset.repo", "TUCHTRECHT_DATASET_REPO", "HF_DATASET_REPO")
	bind(v, "dataset.token", "TUCHTRECHT_DATASET_TOKEN", "HF_TOKEN")
	bind(v, "dataset.private", "TUCHTRECHT_DATASET_PRIVATE", "HF_PRIVATE")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func bind(v *viper.Viper, key string, envs ...string) {
	args := append([]string{key}, envs...)
	// BindEnv only errors on an empty key.
	_ = v.BindEnv(args...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("crawl.limit", 500)
	v.SetDefault("crawl.source", SourceSRU)
	v.SetDefault("crawl.shard_dir", "shards")
	v.SetDefault("crawl.checkpoint_dir", "checkpoint")
	v.SetDefault("sru.base_url", "https://repository.overheid.nl/sru")
	v.SetDefault("sru.query", "c.product-area==tuchtrecht")
	v.SetDefault("sru.record_schema", "gzd")
	v.SetDefault("sru.page_size", 50)
	v.SetDefault("sru.timeout_seconds", 60)
	v.SetDefault("frbr.base_url", "https://repository.overheid.nl")
	// The browse listing paginates in steps of eleven entries.
	v.SetDefault("frbr.page_size", 11)
	v.SetDefault("frbr.timeout_seconds", 30)
	v.SetDefault("frbr.user_agent", "tuchtrecht-crawler/1.0 (+https://github.com/vgassen/tuchtrecht-crawler)")
	v.SetDefault("dataset.endpoint", "https://huggingface.co")
	v.SetDefault("upload.provider", ProviderHuggingFace)
	v.SetDefault("upload.local_dir", "published")
	v.SetDefault("gcs.prefix", "shards")
	v.SetDefault("pubsub.topic", "tuchtrecht-shards")
}

// Validate enforces required values before any network activity happens.
func (c Config) Validate() error {
	if c.Crawl.Limit <= 0 {
		return fmt.Errorf("crawl.limit must be > 0")
	}
	if c.Crawl.Source != SourceSRU && c.Crawl.Source != SourceFRBR {
		return fmt.Errorf("crawl.source must be %q or %q", SourceSRU, SourceFRBR)
	}
	if c.SRU.PageSize <= 0 {
		return fmt.Errorf("sru.page_size must be > 0")
	}
	switch c.Upload.Provider {
	case ProviderHuggingFace:
		if c.Dataset.Repo == "" {
			return fmt.Errorf("dataset.repo is required (set TUCHTRECHT_DATASET_REPO)")
		}
		if c.Dataset.Token == "" {
			return fmt.Errorf("dataset.token is required (set TUCHTRECHT_DATASET_TOKEN)")
		}
	case ProviderGCS:
		if c.GCS.Bucket == "" {
			return fmt.Errorf("gcs.bucket is required for the gcs upload provider")
		}
	case ProviderLocal:
		if c.Upload.LocalDir == "" {
			return fmt.Errorf("upload.local_dir is required for the local upload provider")
		}
	default:
		return fmt.Errorf("unknown upload.provider %q", c.Upload.Provider)
	}
	return nil
}

// CheckpointDirFor returns the checkpoint directory for a record source.
// Visited identifiers are not comparable across sources (ECLI vs document
// URL) and the SRU resume offset is derived from the visited count, so each
// source keeps its own visited log and shard counter.
func (c Config) CheckpointDirFor(source string) string {
	return filepath.Join(c.Crawl.CheckpointDir, source)
}

// SRUTimeout converts the configured SRU timeout into a duration.
func (c Config) SRUTimeout() time.Duration {
	return time.Duration(c.SRU.TimeoutSeconds) * time.Second
}

// FRBRTimeout converts the configured browse timeout into a duration.
func (c Config) FRBRTimeout() time.Duration {
	return time.Duration(c.FRBR.TimeoutSeconds) * time.Second
}
