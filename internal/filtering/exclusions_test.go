package filtering_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
	"github.com/seclens/cvecurator/internal/filtering"
)

func defaultFilterConfig() config.FilterConfig {
	return config.FilterConfig{
		QualityThreshold:  0.60,
		ReviewFloor:       0.40,
		MinCredibility:    0.3,
		TargetPerSeverity: 50,
		CutoffDate:        "2024-08-01",
	}
}

// makeScored returns a healthy scored record; tests override single fields.
func makeScored(id string) schemas.ScoredRecord {
	return schemas.ScoredRecord{
		Record: schemas.Record{
			CVEID: id,
			Description: "A SQL injection vulnerability in ExampleApp allows remote " +
				"unauthorized attackers to execute arbitrary SQL commands via a crafted HTTP request.",
			Published: "2023-06-15",
			CVSSScore: func() *float64 { v := 8.1; return &v }(),
			Severity:  schemas.SeverityHigh,
			CWEIDs:    []string{"CWE-89"},
			Source:    schemas.SourceNVD,
		},
		RelevanceScore:         0.80,
		CompletenessScore:      0.90,
		SourceCredibilityScore: 1.0,
		ClarityScore:           1.0,
		CompositeScore:         0.87,
		TrainingReady:          true,
		PipelineVersion:        "v0.1.0",
		ScoredAt:               "2026-02-24T00:00:00Z",
	}
}

func TestHardExclusionsKeepHealthyRecords(t *testing.T) {
	t.Parallel()

	kept, excluded := filtering.ApplyHardExclusions(
		[]schemas.ScoredRecord{makeScored("CVE-2023-00001")}, defaultFilterConfig())

	require.Len(t, kept, 1)
	assert.Empty(t, excluded)
	assert.Empty(t, kept[0].ExclusionReason)
}

func TestHardExclusionsIgnoreCompositeScore(t *testing.T) {
	t.Parallel()

	// High composite does not save a record with zero clarity.
	rec := makeScored("CVE-2024-99999")
	rec.ClarityScore = 0.0
	rec.CompositeScore = 0.87

	kept, excluded := filtering.ApplyHardExclusions([]schemas.ScoredRecord{rec}, defaultFilterConfig())

	assert.Empty(t, kept)
	require.Len(t, excluded, 1)
	assert.Contains(t, excluded[0].ExclusionReason, "clarity_score=0.0")
}

func TestHardExclusionsEmptyDescription(t *testing.T) {
	t.Parallel()

	rec := makeScored("CVE-2023-00002")
	rec.Description = "   \t  " // whitespace-only counts as missing
	rec.ClarityScore = 0.5      // keep clarity non-zero to isolate the reason

	kept, excluded := filtering.ApplyHardExclusions([]schemas.ScoredRecord{rec}, defaultFilterConfig())

	assert.Empty(t, kept)
	require.Len(t, excluded, 1)
	assert.Equal(t, "description missing or empty", excluded[0].ExclusionReason)
}

func TestHardExclusionsLowCredibility(t *testing.T) {
	t.Parallel()

	rec := makeScored("CVE-2023-00003")
	rec.SourceCredibilityScore = 0.29

	kept, excluded := filtering.ApplyHardExclusions([]schemas.ScoredRecord{rec}, defaultFilterConfig())

	assert.Empty(t, kept)
	require.Len(t, excluded, 1)
	assert.Contains(t, excluded[0].ExclusionReason, "source_credibility_score < 0.3")
}

func TestHardExclusionsJoinAllReasons(t *testing.T) {
	t.Parallel()

	rec := makeScored("CVE-2023-00004")
	rec.Description = ""
	rec.ClarityScore = 0.0
	rec.SourceCredibilityScore = 0.1

	_, excluded := filtering.ApplyHardExclusions([]schemas.ScoredRecord{rec}, defaultFilterConfig())

	require.Len(t, excluded, 1)
	assert.Equal(t,
		"clarity_score=0.0 (placeholder or unparseable description); "+
			"description missing or empty; "+
			"source_credibility_score < 0.3 (untrusted source)",
		excluded[0].ExclusionReason)
}

func TestHardExclusionsDoNotMutateInput(t *testing.T) {
	t.Parallel()

	rec := makeScored("CVE-2023-00005")
	rec.ClarityScore = 0.0
	input := []schemas.ScoredRecord{rec}

	_, excluded := filtering.ApplyHardExclusions(input, defaultFilterConfig())

	require.Len(t, excluded, 1)
	assert.NotEmpty(t, excluded[0].ExclusionReason)
	// The input record is untouched; the annotation lives on the copy.
	assert.Empty(t, input[0].ExclusionReason)
}
