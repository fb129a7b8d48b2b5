package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
)

func hubConfig(baseURL string) config.IngestConfig {
	return config.IngestConfig{
		HubBaseURL:    baseURL,
		HubDataset:    "example/cve-mirror",
		HubMaxRecords: 10,
		TimeoutSec:    5,
	}
}

func hubRow(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%q:%q", k, v))
	}
	return fmt.Sprintf(`{"row":{%s}}`, strings.Join(parts, ","))
}

func hubPage(total int, rows ...string) string {
	return fmt.Sprintf(`{"num_rows_total":%d,"rows":[%s]}`, total, strings.Join(rows, ","))
}

func TestHubFetchNormalizesAliasedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "example/cve-mirror", r.URL.Query().Get("dataset"))
		assert.Equal(t, "train", r.URL.Query().Get("split"))
		fmt.Fprint(w, hubPage(3,
			hubRow(map[string]string{
				"cve_id":      "CVE-2021-44228",
				"description": "JNDI lookup allows remote code execution in log4j.",
				"published":   "2021-12-10",
				"severity":    "critical",
			}),
			hubRow(map[string]string{
				"CVE_ID":       "CVE-2019-0708",
				"Description":  "RDP use-after-free allows remote code execution.",
				"publish_date": "2019-05-14",
				"Severity":     "Critical",
			}),
			hubRow(map[string]string{"description": "no identifier on this row"}),
		))
	}))
	defer server.Close()

	client := NewHubClient(hubConfig(server.URL), nil)
	records, err := client.FetchCVEs(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "CVE-2021-44228", first.CVEID)
	assert.Contains(t, first.Description, "JNDI")
	assert.Equal(t, "2021-12-10", first.Published)
	assert.Equal(t, "CRITICAL", first.Severity)
	assert.Equal(t, schemas.SourceHub, first.Source)
	assert.NotNil(t, first.CWEIDs) // serializes as [] rather than null

	second := records[1]
	assert.Equal(t, "CVE-2019-0708", second.CVEID)
	assert.Equal(t, "2019-05-14", second.Published)
	assert.Equal(t, "CRITICAL", second.Severity)
}

func TestHubFetchSkipsExistingIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, hubPage(2,
			hubRow(map[string]string{"cve_id": "CVE-2023-00001", "description": "already ingested"}),
			hubRow(map[string]string{"cve_id": "CVE-2023-00002", "description": "new record"}),
		))
	}))
	defer server.Close()

	client := NewHubClient(hubConfig(server.URL), nil)
	existing := map[string]struct{}{"CVE-2023-00001": {}}

	records, err := client.FetchCVEs(context.Background(), 10, existing)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CVE-2023-00002", records[0].CVEID)
}

func TestHubFetchPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		switch offset {
		case 0:
			fmt.Fprint(w, hubPage(101, repeatedHubRows(0, hubPageSize)...))
		case hubPageSize:
			fmt.Fprint(w, hubPage(101, hubRow(map[string]string{"cve_id": "CVE-2023-00100"})))
		default:
			t.Errorf("unexpected offset %d", offset)
		}
	}))
	defer server.Close()

	cfg := hubConfig(server.URL)
	client := NewHubClient(cfg, nil)

	records, err := client.FetchCVEs(context.Background(), 200, nil)
	require.NoError(t, err)
	assert.Len(t, records, 101)
}

func repeatedHubRows(start, n int) []string {
	rows := make([]string, 0, n)
	for i := start; i < start+n; i++ {
		rows = append(rows, hubRow(map[string]string{"cve_id": fmt.Sprintf("CVE-2023-%05d", i)}))
	}
	return rows
}

func TestHubFetchKeepsPartialResultsOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset == 0 {
			fmt.Fprint(w, hubPage(200, repeatedHubRows(0, hubPageSize)...))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHubClient(hubConfig(server.URL), nil)
	records, err := client.FetchCVEs(context.Background(), 200, nil)
	require.NoError(t, err)
	assert.Len(t, records, hubPageSize)
}

func TestNormalizeHubRowIgnoresNonStringValues(t *testing.T) {
	t.Parallel()

	rec, ok := normalizeHubRow(map[string]any{
		"cve_id":      "CVE-2023-00001",
		"description": 42, // numeric junk is not coerced
		"severity":    "high",
	})
	require.True(t, ok)
	assert.Empty(t, rec.Description)
	assert.Equal(t, "HIGH", rec.Severity)

	_, ok = normalizeHubRow(map[string]any{"id": ""})
	assert.False(t, ok)
}
