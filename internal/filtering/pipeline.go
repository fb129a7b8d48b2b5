package filtering

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
	"github.com/seclens/cvecurator/internal/storage"
)

// Output file names under the filter output directory.
const (
	TrainingFinalFile        = "training_final.jsonl"
	ReviewQueueFile          = "review_queue.jsonl"
	RejectedFile             = "rejected.jsonl"
	FlaggedContaminationFile = "flagged_contamination.jsonl"
)

// Summary reports record counts at every stage boundary of a filter run.
type Summary struct {
	TotalInput           int `json:"total_input"`
	HardExcluded         int `json:"hard_excluded"`
	TrainingReadyRaw     int `json:"training_ready_raw"`
	ReviewQueue          int `json:"review_queue"`
	TierRejected         int `json:"tier_rejected"`
	Sampled              int `json:"sampled"`
	TrainingFinal        int `json:"training_final"`
	FlaggedContamination int `json:"flagged_contamination"`
}

// Result carries the four output partitions plus the summary. Partitions are
// disjoint; a record terminates in exactly one of them or in the internal
// tier-rejected band, which is counted but not persisted.
type Result struct {
	TrainingFinal        []schemas.ScoredRecord
	ReviewQueue          []schemas.ScoredRecord
	HardExcluded         []schemas.ScoredRecord
	FlaggedContamination []schemas.ScoredRecord
	Summary              Summary
}

// Pipeline sequences the four filter stages over an in-memory record set.
// The stages themselves are pure; Pipeline adds only ordering and logging.
type Pipeline struct {
	cfg    config.FilterConfig
	logger *zap.Logger
}

// NewPipeline creates a filter pipeline with the given thresholds.
func NewPipeline(cfg config.FilterConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logger.Named("filter")}
}

// Run applies hard exclusions, tiering, stratified sampling (training-ready
// tier only), and decontamination (sampled subset only), in that fixed order.
// Later stages need the full output of earlier ones — the sampler in
// particular needs global visibility into severity groups — so stages never
// overlap.
func (p *Pipeline) Run(records []schemas.ScoredRecord) (*Result, error) {
	kept, excluded := ApplyHardExclusions(records, p.cfg)
	p.logger.Info("Hard exclusions applied",
		zap.Int("removed", len(excluded)), zap.Int("kept", len(kept)))

	tiers := ApplyTiers(kept, p.cfg)
	p.logger.Info("Tiers assigned",
		zap.Int("training_ready", len(tiers.TrainingReady)),
		zap.Int("review_queue", len(tiers.ReviewQueue)),
		zap.Int("rejected", len(tiers.Rejected)))

	sampled := ApplyStratifiedSample(tiers.TrainingReady, p.cfg.TargetPerSeverity)
	p.logger.Info("Stratified sample taken", zap.Int("sampled", len(sampled)))

	clean, flagged, err := ApplyDecontamination(sampled, p.cfg.CutoffDate)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Decontamination applied",
		zap.Int("clean", len(clean)), zap.Int("flagged", len(flagged)))

	return &Result{
		TrainingFinal:        clean,
		ReviewQueue:          tiers.ReviewQueue,
		HardExcluded:         excluded,
		FlaggedContamination: flagged,
		Summary: Summary{
			TotalInput:           len(records),
			HardExcluded:         len(excluded),
			TrainingReadyRaw:     len(tiers.TrainingReady),
			ReviewQueue:          len(tiers.ReviewQueue),
			TierRejected:         len(tiers.Rejected),
			Sampled:              len(sampled),
			TrainingFinal:        len(clean),
			FlaggedContamination: len(flagged),
		},
	}, nil
}

// RunFiles is the persisted-state entry point: it loads the scored JSONL,
// runs the in-memory pipeline, and writes the four output partitions to
// outputDir. All I/O stays at this boundary. The rejected output reuses the
// hard-exclusion partition; the tier-rejected band is reported in the
// summary only.
func (p *Pipeline) RunFiles(scoredPath, outputDir string) (Summary, error) {
	records, err := storage.ReadAll[schemas.ScoredRecord](scoredPath)
	if err != nil {
		return Summary{}, fmt.Errorf("load scored records: %w", err)
	}
	p.logger.Info("Loaded scored records",
		zap.Int("count", len(records)), zap.String("path", scoredPath))

	result, err := p.Run(records)
	if err != nil {
		return Summary{}, err
	}

	outputs := []struct {
		name    string
		records []schemas.ScoredRecord
	}{
		{TrainingFinalFile, result.TrainingFinal},
		{ReviewQueueFile, result.ReviewQueue},
		{RejectedFile, result.HardExcluded},
		{FlaggedContaminationFile, result.FlaggedContamination},
	}
	for _, out := range outputs {
		path := filepath.Join(outputDir, out.name)
		if err := storage.WriteAll(path, out.records); err != nil {
			return Summary{}, fmt.Errorf("write %s: %w", out.name, err)
		}
	}
	p.logger.Info("Filter outputs written", zap.String("dir", outputDir))

	return result.Summary, nil
}
