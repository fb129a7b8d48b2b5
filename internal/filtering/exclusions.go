// Package filtering partitions scored CVE records into training-ready,
// review, and rejected material. Filtering is tiered rather than binary so
// borderline records reach human review instead of being discarded, and
// dimension-specific hard exclusions catch records a weighted composite
// would let through (a RESERVED placeholder can still score 0.65 composite).
// Every stage is a pure function: inputs are never mutated, each output
// record is a copy carrying one new annotation.
package filtering

import (
	"strings"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
)

// ApplyHardExclusions removes records failing an absolute quality floor,
// independent of composite score. A record is excluded when any of:
//
//   - clarity score is exactly 0.0 (placeholder or unusable description)
//   - description is missing or whitespace-only
//   - source credibility is below the configured floor
//
// All matching reasons are recorded on the excluded record, joined by "; ".
func ApplyHardExclusions(records []schemas.ScoredRecord, cfg config.FilterConfig) (kept, excluded []schemas.ScoredRecord) {
	for _, rec := range records {
		var reasons []string

		if rec.ClarityScore == 0.0 {
			reasons = append(reasons, "clarity_score=0.0 (placeholder or unparseable description)")
		}
		if strings.TrimSpace(rec.Description) == "" {
			reasons = append(reasons, "description missing or empty")
		}
		if rec.SourceCredibilityScore < cfg.MinCredibility {
			reasons = append(reasons, "source_credibility_score < 0.3 (untrusted source)")
		}

		if len(reasons) > 0 {
			excluded = append(excluded, rec.WithExclusionReason(strings.Join(reasons, "; ")))
		} else {
			kept = append(kept, rec)
		}
	}
	return kept, excluded
}
