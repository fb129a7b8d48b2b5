package ingestion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
	"github.com/seclens/cvecurator/internal/storage"
)

// Ingestor runs the full ingestion: primary authority first, then the hub
// mirror deduplicated against it, then a final dedup pass by CVE ID.
type Ingestor struct {
	nvd    *NVDClient
	hub    *HubClient
	cfg    config.IngestConfig
	logger *zap.Logger
}

// NewIngestor wires both source clients from configuration.
func NewIngestor(cfg config.IngestConfig, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		nvd:    NewNVDClient(cfg, logger),
		hub:    NewHubClient(cfg, logger),
		cfg:    cfg,
		logger: logger.Named("ingest"),
	}
}

// Run fetches from both sources and returns the deduplicated record set.
// NVD records take precedence: hub rows matching an NVD ID are dropped.
func (ing *Ingestor) Run(ctx context.Context) ([]schemas.Record, error) {
	nvdRecords, err := ing.nvd.FetchCVEs(ctx, ing.cfg.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("nvd ingestion: %w", err)
	}

	nvdIDs := make(map[string]struct{}, len(nvdRecords))
	for _, rec := range nvdRecords {
		nvdIDs[rec.CVEID] = struct{}{}
	}

	hubRecords, err := ing.hub.FetchCVEs(ctx, ing.cfg.HubMaxRecords, nvdIDs)
	if err != nil {
		return nil, fmt.Errorf("hub ingestion: %w", err)
	}

	deduped := Dedup(append(nvdRecords, hubRecords...))

	counts := map[schemas.Source]int{}
	for _, rec := range deduped {
		counts[rec.Source]++
	}
	ing.logger.Info("Ingestion summary",
		zap.Int("total", len(deduped)),
		zap.Int("nvd", counts[schemas.SourceNVD]),
		zap.Int("hub", counts[schemas.SourceHub]))

	return deduped, nil
}

// RunToFile runs ingestion and persists the raw JSONL.
func (ing *Ingestor) RunToFile(ctx context.Context, rawPath string) (int, error) {
	records, err := ing.Run(ctx)
	if err != nil {
		return 0, err
	}
	if err := storage.WriteAll(rawPath, records); err != nil {
		return 0, fmt.Errorf("write raw records: %w", err)
	}
	ing.logger.Info("Raw records written", zap.String("path", rawPath), zap.Int("count", len(records)))
	return len(records), nil
}

// Dedup keeps the first occurrence of each CVE ID, preserving input order.
// Records with an empty ID are dropped — an unidentifiable record cannot be
// tracked through the pipeline.
func Dedup(records []schemas.Record) []schemas.Record {
	seen := make(map[string]struct{}, len(records))
	deduped := make([]schemas.Record, 0, len(records))
	for _, rec := range records {
		if rec.CVEID == "" {
			continue
		}
		if _, dup := seen[rec.CVEID]; dup {
			continue
		}
		seen[rec.CVEID] = struct{}{}
		deduped = append(deduped, rec)
	}
	return deduped
}
