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

	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
)

// hubRowsResponse is the dataset-hub rows API shape: paginated rows, each an
// arbitrary JSON object whose field names vary between dataset uploads.
type hubRowsResponse struct {
	Rows []struct {
		Row map[string]any `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// HubClient loads CVE records from the community dataset hub. Hub uploads
// are schema-sloppy — field names differ by uploader — so every field is
// resolved through an alias list and missing fields default to absent.
type HubClient struct {
	baseURL    string
	dataset    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHubClient builds a dataset-hub client from configuration.
func NewHubClient(cfg config.IngestConfig, logger *zap.Logger) *HubClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HubClient{
		baseURL:    cfg.HubBaseURL,
		dataset:    cfg.HubDataset,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		logger:     logger.Named("hub"),
	}
}

// hubPageSize is the rows-API maximum page length.
const hubPageSize = 100

// FetchCVEs pages through the dataset rows, normalizing each onto the Record
// shape and skipping rows whose ID is empty or already present in
// existingIDs (the primary authority wins on duplicates). Hub ingestion is
// best-effort: a failed page ends the fetch with what was collected.
func (c *HubClient) FetchCVEs(ctx context.Context, maxRecords int, existingIDs map[string]struct{}) ([]schemas.Record, error) {
	var records []schemas.Record
	offset := 0

	c.logger.Info("Loading dataset-hub records",
		zap.String("dataset", c.dataset), zap.Int("max_records", maxRecords))

	for len(records) < maxRecords {
		page, err := c.fetchRows(ctx, offset, hubPageSize)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			c.logger.Warn("Dataset-hub fetch failed, keeping partial results", zap.Error(err))
			break
		}
		if len(page.Rows) == 0 {
			break
		}

		for _, row := range page.Rows {
			if len(records) >= maxRecords {
				break
			}
			rec, ok := normalizeHubRow(row.Row)
			if !ok {
				continue
			}
			if _, dup := existingIDs[rec.CVEID]; dup {
				continue
			}
			records = append(records, rec)
		}

		offset += len(page.Rows)
		if offset >= page.NumRowsTotal {
			break
		}
	}

	c.logger.Info("Dataset-hub ingestion complete", zap.Int("records", len(records)))
	return records, nil
}

func (c *HubClient) fetchRows(ctx context.Context, offset, length int) (*hubRowsResponse, error) {
	params := url.Values{}
	params.Set("dataset", c.dataset)
	params.Set("config", "default")
	params.Set("split", "train")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("length", strconv.Itoa(length))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rows?"+params.Encode(), nil)
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

	var page hubRowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode rows response: %w", err)
	}
	return &page, nil
}

// normalizeHubRow maps an arbitrarily-named hub row onto the Record shape.
// Returns ok=false when no usable CVE ID is present.
func normalizeHubRow(row map[string]any) (schemas.Record, bool) {
	cveID := firstString(row, "cve_id", "CVE_ID", "id", "Name")
	if cveID == "" {
		return schemas.Record{}, false
	}

	severity := strings.ToUpper(firstString(row, "severity", "Severity", "cvss_severity"))

	return schemas.Record{
		CVEID:       cveID,
		Description: firstString(row, "description", "Description", "desc"),
		Published:   firstString(row, "published", "Published", "publish_date"),
		Severity:    severity,
		CWEIDs:      []string{},
		Source:      schemas.SourceHub,
	}, true
}

// firstString returns the first non-empty string value among the aliased
// keys. Non-string values are ignored rather than coerced.
func firstString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
