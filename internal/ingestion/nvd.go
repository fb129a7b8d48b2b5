// Package ingestion pulls CVE records from the two external sources (the NVD
// CVE 2.0 REST API and a dataset-hub mirror), normalizes them onto the shared
// Record shape, and deduplicates by CVE ID. Retry and rate-limit policy lives
// entirely here; the scoring/filtering core never performs I/O.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -- NVD CVE 2.0 API response shapes (the subset we consume) --

type nvdResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Vulnerabilities []nvdVulnerability `json:"vulnerabilities"`
}

type nvdVulnerability struct {
	CVE nvdCVE `json:"cve"`
}

type nvdCVE struct {
	ID           string         `json:"id"`
	Published    string         `json:"published"`
	LastModified string         `json:"lastModified"`
	Descriptions []nvdLangValue `json:"descriptions"`
	Metrics      nvdMetrics     `json:"metrics"`
	Weaknesses   []nvdWeakness  `json:"weaknesses"`
}

type nvdLangValue struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type nvdMetrics struct {
	CVSSMetricV31 []nvdMetric `json:"cvssMetricV31"`
	CVSSMetricV30 []nvdMetric `json:"cvssMetricV30"`
}

type nvdMetric struct {
	CVSSData nvdCVSSData `json:"cvssData"`
}

type nvdCVSSData struct {
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type nvdWeakness struct {
	Description []nvdLangValue `json:"description"`
}

// NVDClient fetches CVE records from the NVD API, paginating under a rate
// limiter (NVD allows one request per 6 seconds without an API key) and
// retrying each page with exponential backoff.
type NVDClient struct {
	baseURL    string
	pageSize   int
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	// backoffBase is the first retry delay; each further attempt doubles it.
	backoffBase time.Duration
}

// NewNVDClient builds an NVD client from configuration.
func NewNVDClient(cfg config.IngestConfig, logger *zap.Logger) *NVDClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Zero interval disables the limiter (tests); the config default is 6s.
	limit := rate.Inf
	if cfg.RequestIntervalSec > 0 {
		limit = rate.Every(time.Duration(cfg.RequestIntervalSec) * time.Second)
	}
	return &NVDClient{
		baseURL:     cfg.NVDBaseURL,
		pageSize:    cfg.ResultsPerPage,
		maxRetries:  cfg.MaxRetries,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.Named("nvd"),
		backoffBase: 6 * time.Second,
	}
}

// FetchCVEs paginates through the NVD API until maxRecords records are
// collected or the result set is exhausted. A page whose retries are all
// exhausted ends ingestion with whatever was collected so far — partial
// ingestion is preferable to losing the run.
func (c *NVDClient) FetchCVEs(ctx context.Context, maxRecords int) ([]schemas.Record, error) {
	var records []schemas.Record
	startIndex := 0

	c.logger.Info("Starting NVD ingestion", zap.Int("max_records", maxRecords))

	for len(records) < maxRecords {
		if err := c.limiter.Wait(ctx); err != nil {
			return records, err
		}

		fetchCount := min(c.pageSize, maxRecords-len(records))
		page, err := c.fetchPage(ctx, startIndex, fetchCount)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			c.logger.Warn("All retries exhausted, stopping NVD ingestion", zap.Error(err))
			break
		}

		if len(page.Vulnerabilities) == 0 {
			break
		}
		for _, vuln := range page.Vulnerabilities {
			records = append(records, vuln.CVE.toRecord())
		}
		c.logger.Debug("Fetched NVD page",
			zap.Int("start_index", startIndex), zap.Int("total_fetched", len(records)))

		startIndex += len(page.Vulnerabilities)
		if startIndex >= page.TotalResults || len(page.Vulnerabilities) < fetchCount {
			break
		}
	}

	c.logger.Info("NVD ingestion complete", zap.Int("records", len(records)))
	return records, nil
}

// fetchPage requests one page, retrying transient failures with exponential
// backoff (interval, 2x interval, 4x interval ...).
func (c *NVDClient) fetchPage(ctx context.Context, startIndex, resultsPerPage int) (*nvdResponse, error) {
	params := url.Values{}
	params.Set("startIndex", strconv.Itoa(startIndex))
	params.Set("resultsPerPage", strconv.Itoa(resultsPerPage))
	reqURL := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * c.backoffBase
			c.logger.Warn("NVD request failed, backing off",
				zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		page, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("nvd page at index %d: %w", startIndex, lastErr)
}

func (c *NVDClient) doRequest(ctx context.Context, reqURL string) (*nvdResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var page nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}

// toRecord normalizes an NVD entry onto the shared Record shape.
func (c nvdCVE) toRecord() schemas.Record {
	score, severity := extractCVSS(c.Metrics)
	return schemas.Record{
		CVEID:        c.ID,
		Description:  extractDescription(c.Descriptions),
		Published:    c.Published,
		LastModified: c.LastModified,
		CVSSScore:    score,
		Severity:     severity,
		CWEIDs:       extractCWEIDs(c.Weaknesses),
		Source:       schemas.SourceNVD,
	}
}

// extractCVSS returns the base score and severity, preferring v3.1 metrics
// over v3.0. Both are absent on many pre-2016 entries.
func extractCVSS(m nvdMetrics) (*float64, string) {
	for _, entries := range [][]nvdMetric{m.CVSSMetricV31, m.CVSSMetricV30} {
		if len(entries) > 0 {
			data := entries[0].CVSSData
			score := data.BaseScore
			return &score, data.BaseSeverity
		}
	}
	return nil, ""
}

// extractDescription returns the first English description.
func extractDescription(descriptions []nvdLangValue) string {
	for _, d := range descriptions {
		switch strings.ToLower(d.Lang) {
		case "en", "en-us":
			return d.Value
		}
	}
	return ""
}

// extractCWEIDs collects CWE-prefixed weakness identifiers, skipping NVD's
// NVD-CWE-noinfo and similar placeholders.
func extractCWEIDs(weaknesses []nvdWeakness) []string {
	var ids []string
	for _, w := range weaknesses {
		for _, d := range w.Description {
			if strings.HasPrefix(d.Value, "CWE-") {
				ids = append(ids, d.Value)
			}
		}
	}
	return ids
}
