package filtering_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/filtering"
)

func TestApplyTiersBoundaries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		composite float64
		expected  schemas.Tier
	}{
		{0.95, schemas.TierTrainingReady},
		{0.60, schemas.TierTrainingReady}, // lower bound is inclusive
		{0.599, schemas.TierReviewQueue},
		{0.40, schemas.TierReviewQueue}, // lower bound is inclusive
		{0.399, schemas.TierRejected},
		{0.0, schemas.TierRejected}, // missing composite defaults to 0.0
	}

	for _, tc := range testCases {
		rec := makeScored("CVE-2023-10000")
		rec.CompositeScore = tc.composite

		tiers := filtering.ApplyTiers([]schemas.ScoredRecord{rec}, defaultFilterConfig())

		all := map[schemas.Tier][]schemas.ScoredRecord{
			schemas.TierTrainingReady: tiers.TrainingReady,
			schemas.TierReviewQueue:   tiers.ReviewQueue,
			schemas.TierRejected:      tiers.Rejected,
		}
		require.Len(t, all[tc.expected], 1, "composite %.3f", tc.composite)
		assert.Equal(t, tc.expected, all[tc.expected][0].Tier)

		// The other two bands stay empty: bands are disjoint.
		total := len(tiers.TrainingReady) + len(tiers.ReviewQueue) + len(tiers.Rejected)
		assert.Equal(t, 1, total)
	}
}

func TestApplyTiersPartitionsEveryRecord(t *testing.T) {
	t.Parallel()

	var records []schemas.ScoredRecord
	for _, composite := range []float64{0.1, 0.45, 0.62, 0.3, 0.88, 0.40, 0.60} {
		rec := makeScored("CVE-2023-20000")
		rec.CompositeScore = composite
		records = append(records, rec)
	}

	tiers := filtering.ApplyTiers(records, defaultFilterConfig())

	assert.Len(t, tiers.TrainingReady, 3)
	assert.Len(t, tiers.ReviewQueue, 2)
	assert.Len(t, tiers.Rejected, 2)
}
