// Package frbr discovers ruling XML documents by walking the FRBR browse
// pages of the government repository. It is the fallback source for
// environments where the SRU endpoint is unavailable.
package frbr

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
	"github.com/vgassen/tuchtrecht-crawler/internal/metrics"
	"github.com/vgassen/tuchtrecht-crawler/internal/sru"
)

const browseRoot = "/frbr/tuchtrecht"

// xmlPathPattern matches the OCR-XML document links on the browse pages.
var xmlPathPattern = regexp.MustCompile(`^/frbr/tuchtrecht/[12]\d{3}/[A-Z0-9\-]+/ocrxml$`)

// Config describes the repository browse pages.
type Config struct {
	BaseURL   string
	PageSize  int
	Timeout   time.Duration
	UserAgent string
}

// Discoverer pages through the browse listing, downloads each newly seen
// document, and yields records keyed by document URL.
type Discoverer struct {
	cfg       Config
	collector *colly.Collector
	// visited short-circuits already-seen documents before download.
	visited func(string) bool
	logger  *zap.Logger
}

// NewDiscoverer constructs a Discoverer. visited may be nil.
func NewDiscoverer(cfg Config, visited func(string) bool, logger *zap.Logger) (*Discoverer, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("frbr base URL is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("frbr page size must be > 0, got %d", cfg.PageSize)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.AllowURLRevisit = true
	c.SetRequestTimeout(cfg.Timeout)

	if visited == nil {
		visited = func(string) bool { return false }
	}
	return &Discoverer{
		cfg:       cfg,
		collector: c,
		visited:   visited,
		logger:    logger,
	}, nil
}

// Resume always starts at the top of the listing; the browse order is not
// addressable by visited count, so dedup does the skipping.
func (d *Discoverer) Resume(_ int) int {
	return 1
}

// FetchPage lists the browse page at start (1-based listing offset) and
// downloads every newly seen document on it.
func (d *Discoverer) FetchPage(ctx context.Context, start int) (crawl.SourcePage, error) {
	paths, err := d.listDocuments(start - 1)
	if err != nil {
		return crawl.SourcePage{}, err
	}

	page := crawl.SourcePage{
		Next: start + d.cfg.PageSize,
		More: len(paths) > 0,
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return crawl.SourcePage{}, fmt.Errorf("discovery canceled: %w", err)
		}
		docURL := d.cfg.BaseURL + p
		if d.visited(docURL) {
			// Still counts as a sighting so the orchestrator dedup
			// bookkeeping stays accurate.
			page.Records = append(page.Records, crawl.Record{Identifier: docURL, URL: docURL})
			continue
		}
		rec, ok := d.fetchDocument(docURL)
		if !ok {
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// listDocuments collects document links from one listing page.
func (d *Discoverer) listDocuments(offset int) ([]string, error) {
	listURL := d.cfg.BaseURL + browseRoot
	if offset > 0 {
		listURL = fmt.Sprintf("%s?start=%d", listURL, offset)
	}

	var paths []string
	c := d.collector.Clone()
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if xmlPathPattern.MatchString(href) {
			paths = append(paths, href)
		}
	})
	if err := c.Visit(listURL); err != nil {
		return nil, fmt.Errorf("list browse page %s: %w", listURL, err)
	}
	c.Wait()
	d.logger.Debug("Browse page listed",
		zap.Int("offset", offset),
		zap.Int("documents", len(paths)))
	return paths, nil
}

// fetchDocument downloads one ruling XML and flattens it to text. Failures
// are per-document: log and skip, never fail the page.
func (d *Discoverer) fetchDocument(docURL string) (crawl.Record, bool) {
	var body []byte
	c := d.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte{}, r.Body...)
	})
	if err := c.Visit(docURL); err != nil {
		d.logger.Warn("Failed to fetch document", zap.String("url", docURL), zap.Error(err))
		metrics.ObserveMalformedRecord()
		return crawl.Record{}, false
	}
	c.Wait()

	content := sru.FlattenText(string(body))
	if content == "" {
		d.logger.Warn("Document yielded no text", zap.String("url", docURL))
		metrics.ObserveMalformedRecord()
		return crawl.Record{}, false
	}
	return crawl.Record{
		Identifier: docURL,
		URL:        docURL,
		Content:    content,
		Source:     crawl.SourceName,
	}, true
}
