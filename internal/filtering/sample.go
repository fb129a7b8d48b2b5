package filtering

import (
	"sort"

	"github.com/seclens/cvecurator/api/schemas"
)

// severityOrder fixes both the grouping and the output concatenation order
// of the stratified sampler. Downstream consumers may rely on this ordering.
var severityOrder = []string{
	schemas.SeverityCritical,
	schemas.SeverityHigh,
	schemas.SeverityMedium,
	schemas.SeverityLow,
	schemas.SeverityUnknown,
}

// ApplyStratifiedSample produces a severity-balanced subset of the
// training-ready tier. NVD skews heavily toward MEDIUM severity; taking at
// most targetPerSeverity of the highest-scoring records from each group
// keeps the curated set balanced across the severity landscape.
//
// Each group is sorted by composite score descending with a stable sort, so
// ties keep their original relative order. UNKNOWN is a real sampling group,
// capped like the others, not a pass-through — no record is silently
// dropped for lacking a severity.
func ApplyStratifiedSample(trainingReady []schemas.ScoredRecord, targetPerSeverity int) []schemas.ScoredRecord {
	groups := make(map[string][]schemas.ScoredRecord)
	for _, rec := range trainingReady {
		sev := rec.NormalizedSeverity()
		groups[sev] = append(groups[sev], rec)
	}

	var sampled []schemas.ScoredRecord
	for _, sev := range severityOrder {
		group := groups[sev]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CompositeScore > group[j].CompositeScore
		})
		if len(group) > targetPerSeverity {
			group = group[:targetPerSeverity]
		}
		for _, rec := range group {
			sampled = append(sampled, rec.WithSampled())
		}
	}
	return sampled
}
