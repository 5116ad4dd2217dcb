// Package sru implements the client for the government SRU searchRetrieve
// endpoint that serves disciplinary-court rulings.
package sru

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
	"github.com/vgassen/tuchtrecht-crawler/internal/metrics"
)

// rulingURLBase is the public page for a ruling, keyed by ECLI.
const rulingURLBase = "https://tuchtrecht.overheid.nl/"

// Config describes the endpoint and query window.
type Config struct {
	BaseURL      string
	Query        string
	RecordSchema string
	PageSize     int
	Timeout      time.Duration
}

// Client issues paginated searchRetrieve queries and parses the XML result
// pages into records. It never retries internally; transport failures
// surface to the orchestrator.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sru base URL is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("sru page size must be > 0, got %d", cfg.PageSize)
	}
	if cfg.RecordSchema == "" {
		cfg.RecordSchema = "gzd"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Resume derives the first startRecord from prior progress. The endpoint
// lists records in stable order, so the already-visited prefix can be
// skipped wholesale; identifier dedup covers any remote reordering.
func (c *Client) Resume(visited int) int {
	return visited + 1
}

// FetchPage requests one result window beginning at start (1-based
// startRecord) and returns the parsed records. Individual malformed
// records are skipped and logged; they never fail the page.
func (c *Client) FetchPage(ctx context.Context, start int) (crawl.SourcePage, error) {
	params := url.Values{}
	params.Set("version", "2.0")
	params.Set("operation", "searchRetrieve")
	params.Set("query", c.cfg.Query)
	params.Set("startRecord", strconv.Itoa(start))
	params.Set("maximumRecords", strconv.Itoa(c.cfg.PageSize))
	params.Set("recordSchema", c.cfg.RecordSchema)
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return crawl.SourcePage{}, fmt.Errorf("build sru request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return crawl.SourcePage{}, fmt.Errorf("sru request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return crawl.SourcePage{}, fmt.Errorf("sru endpoint returned %s for startRecord=%d", resp.Status, start)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return crawl.SourcePage{}, fmt.Errorf("read sru response: %w", err)
	}

	var envelope searchRetrieveResponse
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return crawl.SourcePage{}, fmt.Errorf("decode sru response: %w", err)
	}

	page := crawl.SourcePage{}
	for _, item := range envelope.Records {
		rec, ok := c.parseRecord(item)
		if !ok {
			continue
		}
		page.Records = append(page.Records, rec)
	}

	page.Next = start + len(envelope.Records)
	page.More = len(envelope.Records) > 0 && page.Next <= envelope.NumberOfRecords
	c.logger.Debug("SRU page fetched",
		zap.Int("start", start),
		zap.Int("records", len(page.Records)),
		zap.Int("total", envelope.NumberOfRecords))
	return page, nil
}

// parseRecord maps one gzd record onto the Record entity. The remote
// schema is untrusted input: anything without an identifier or a payload
// is dropped.
func (c *Client) parseRecord(item responseItem) (crawl.Record, bool) {
	identifier := item.Data.Gzd.Enriched.Identifier
	if identifier == "" {
		// Some responses only carry dcterms:identifier inside originalData.
		identifier = firstElementText(item.Data.Gzd.Original.Raw, "identifier")
	}
	if identifier == "" {
		c.logger.Warn("Skipping record without identifier",
			zap.Int("position", item.Position))
		metrics.ObserveMalformedRecord()
		return crawl.Record{}, false
	}

	content := FlattenText(item.Data.Gzd.Original.Raw)
	if content == "" {
		c.logger.Warn("Skipping record without ruling content",
			zap.String("identifier", identifier))
		metrics.ObserveMalformedRecord()
		return crawl.Record{}, false
	}

	return crawl.Record{
		Identifier: identifier,
		URL:        rulingURLBase + identifier,
		Content:    content,
		Source:     crawl.SourceName,
	}, true
}
