// Package reporting renders a self-contained HTML summary of a scored
// dataset. It is a pure presentation layer: it consumes scored records
// read-only and assumes nothing about their ordering.
package reporting

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
)

// severityOrder fixes the row order of the severity distribution table.
var severityOrder = []string{
	schemas.SeverityCritical,
	schemas.SeverityHigh,
	schemas.SeverityMedium,
	schemas.SeverityLow,
	schemas.SeverityUnknown,
}

// Stats aggregates the headline numbers shown at the top of the report.
type Stats struct {
	Total           int
	TrainingReady   int
	TrainingPct     float64
	AvgRelevance    float64
	AvgCompleteness float64
	AvgCredibility  float64
	AvgClarity      float64
	AvgComposite    float64
}

// severityRow is one row of the severity distribution table.
type severityRow struct {
	Severity string
	Count    int
	Pct      float64
}

// topRecord is one row of the top-scoring records table.
type topRecord struct {
	CVEID     string
	Severity  string
	Composite float64
	Ready     bool
}

type reportData struct {
	GeneratedAt     string
	PipelineVersion string
	Stats           Stats
	Severities      []severityRow
	TopRecords      []topRecord
}

// Reporter writes a dataset report to a file. The single implementation
// renders HTML; the interface keeps the CLI decoupled from the format.
type Reporter interface {
	Write(records []schemas.ScoredRecord) error
}

// HTMLReporter renders the report as one self-contained HTML file.
type HTMLReporter struct {
	outputPath string
	topN       int
	logger     *zap.Logger
}

// NewHTMLReporter creates a reporter writing to outputPath.
func NewHTMLReporter(outputPath string, logger *zap.Logger) *HTMLReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTMLReporter{outputPath: outputPath, topN: 20, logger: logger.Named("report")}
}

// Write computes the aggregates and renders the HTML file, creating parent
// directories as needed.
func (h *HTMLReporter) Write(records []schemas.ScoredRecord) error {
	data := buildReportData(records)

	if dir := filepath.Dir(h.outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(h.outputPath)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	data.TopRecords = data.TopRecords[:min(len(data.TopRecords), h.topN)]
	if err := reportTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	h.logger.Info("Report written", zap.String("path", h.outputPath),
		zap.Int("records", data.Stats.Total))
	return nil
}

// ComputeStats aggregates the headline numbers over a scored dataset.
func ComputeStats(records []schemas.ScoredRecord) Stats {
	stats := Stats{Total: len(records)}
	if stats.Total == 0 {
		return stats
	}

	for _, rec := range records {
		if rec.TrainingReady {
			stats.TrainingReady++
		}
		stats.AvgRelevance += rec.RelevanceScore
		stats.AvgCompleteness += rec.CompletenessScore
		stats.AvgCredibility += rec.SourceCredibilityScore
		stats.AvgClarity += rec.ClarityScore
		stats.AvgComposite += rec.CompositeScore
	}

	n := float64(stats.Total)
	stats.TrainingPct = float64(stats.TrainingReady) / n * 100
	stats.AvgRelevance /= n
	stats.AvgCompleteness /= n
	stats.AvgCredibility /= n
	stats.AvgClarity /= n
	stats.AvgComposite /= n
	return stats
}

func buildReportData(records []schemas.ScoredRecord) reportData {
	counts := map[string]int{}
	for _, rec := range records {
		counts[rec.NormalizedSeverity()]++
	}

	var severities []severityRow
	for _, sev := range severityOrder {
		row := severityRow{Severity: sev, Count: counts[sev]}
		if len(records) > 0 {
			row.Pct = float64(row.Count) / float64(len(records)) * 100
		}
		severities = append(severities, row)
	}

	top := make([]topRecord, 0, len(records))
	for _, rec := range records {
		top = append(top, topRecord{
			CVEID:     rec.CVEID,
			Severity:  rec.NormalizedSeverity(),
			Composite: rec.CompositeScore,
			Ready:     rec.TrainingReady,
		})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Composite > top[j].Composite })

	version := ""
	if len(records) > 0 {
		version = records[0].PipelineVersion
	}

	return reportData{
		GeneratedAt:     time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		PipelineVersion: version,
		Stats:           ComputeStats(records),
		Severities:      severities,
		TopRecords:      top,
	}
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CVE Curation Report</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #0f172a; color: #e2e8f0; padding: 2rem; }
  h1 { color: #f1f5f9; }
  .subtitle { color: #94a3b8; margin-bottom: 2rem; }
  .stats { display: flex; gap: 1rem; flex-wrap: wrap; margin-bottom: 2rem; }
  .card { background: #1e293b; border: 1px solid #334155; border-radius: 8px; padding: .75rem 1.5rem; min-width: 140px; text-align: center; }
  .card .value { font-size: 1.6rem; font-weight: 700; color: #38bdf8; }
  .card .label { font-size: .75rem; color: #94a3b8; text-transform: uppercase; }
  table { border-collapse: collapse; margin-bottom: 2rem; min-width: 480px; }
  th, td { padding: .5rem .75rem; text-align: left; border-bottom: 1px solid #334155; }
  th { color: #94a3b8; }
  .ready { color: #22c55e; }
</style>
</head>
<body>
<h1>CVE Curation Report</h1>
<p class="subtitle">Generated {{.GeneratedAt}}{{if .PipelineVersion}} &middot; pipeline {{.PipelineVersion}}{{end}}</p>

<div class="stats">
  <div class="card"><div class="value">{{.Stats.Total}}</div><div class="label">Records</div></div>
  <div class="card"><div class="value">{{.Stats.TrainingReady}}</div><div class="label">Training ready ({{printf "%.1f" .Stats.TrainingPct}}%)</div></div>
  <div class="card"><div class="value">{{printf "%.4f" .Stats.AvgComposite}}</div><div class="label">Avg composite</div></div>
  <div class="card"><div class="value">{{printf "%.4f" .Stats.AvgRelevance}}</div><div class="label">Avg relevance</div></div>
  <div class="card"><div class="value">{{printf "%.4f" .Stats.AvgCompleteness}}</div><div class="label">Avg completeness</div></div>
  <div class="card"><div class="value">{{printf "%.4f" .Stats.AvgCredibility}}</div><div class="label">Avg credibility</div></div>
  <div class="card"><div class="value">{{printf "%.4f" .Stats.AvgClarity}}</div><div class="label">Avg clarity</div></div>
</div>

<h2>Severity distribution</h2>
<table>
  <thead><tr><th>Severity</th><th>Count</th><th>Share</th></tr></thead>
  <tbody>
  {{range .Severities}}<tr><td>{{.Severity}}</td><td>{{.Count}}</td><td>{{printf "%.1f" .Pct}}%</td></tr>
  {{end}}</tbody>
</table>

<h2>Top-scoring records</h2>
<table>
  <thead><tr><th>CVE ID</th><th>Severity</th><th>Composite</th><th>Training ready</th></tr></thead>
  <tbody>
  {{range .TopRecords}}<tr><td>{{.CVEID}}</td><td>{{.Severity}}</td><td>{{printf "%.4f" .Composite}}</td><td>{{if .Ready}}<span class="ready">yes</span>{{else}}no{{end}}</td></tr>
  {{end}}</tbody>
</table>
</body>
</html>
`))
