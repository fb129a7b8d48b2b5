package filtering

import (
	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
)

// TierSet holds the three disjoint composite-score bands produced by
// ApplyTiers. Every input record lands in exactly one band.
type TierSet struct {
	TrainingReady []schemas.ScoredRecord
	ReviewQueue   []schemas.ScoredRecord
	Rejected      []schemas.ScoredRecord
}

// ApplyTiers partitions records into three bands by composite score. Both
// boundaries are inclusive on the lower bound of the higher band: exactly
// 0.60 is training-ready and exactly 0.40 is review-queue. A zero-valued
// composite (including records that skipped scoring) lands in rejected.
func ApplyTiers(records []schemas.ScoredRecord, cfg config.FilterConfig) TierSet {
	var tiers TierSet
	for _, rec := range records {
		switch {
		case rec.CompositeScore >= cfg.QualityThreshold:
			tiers.TrainingReady = append(tiers.TrainingReady, rec.WithTier(schemas.TierTrainingReady))
		case rec.CompositeScore >= cfg.ReviewFloor:
			tiers.ReviewQueue = append(tiers.ReviewQueue, rec.WithTier(schemas.TierReviewQueue))
		default:
			tiers.Rejected = append(tiers.Rejected, rec.WithTier(schemas.TierRejected))
		}
	}
	return tiers
}
