package schemas

import "strings"

// -- Curation Record Schemas --

// Source identifies the provenance of an ingested CVE record. The values are
// lowercase to match the tags written into the raw JSONL by ingestion.
type Source string

// Constants defining the recognized record sources.
const (
	SourceNVD Source = "nvd"         // The primary authority (NVD CVE API).
	SourceHub Source = "huggingface" // A community mirror on the dataset hub.
)

// Severity levels as published by NVD. Uppercase on the wire.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityUnknown  = "UNKNOWN" // Assigned when severity is absent or unrecognized.
)

// Tier is the quality band a scored record is assigned to by the filter
// pipeline.
type Tier string

// Constants defining the three quality tiers.
const (
	TierTrainingReady Tier = "training_ready" // Usable for training as-is.
	TierReviewQueue   Tier = "review_queue"   // Borderline; route to human review.
	TierRejected      Tier = "rejected"       // Below the review floor.
)

// Record is one vulnerability disclosure as ingested, before scoring.
// Optional fields are explicit: CVSSScore is a pointer (nil = not published),
// Severity and Published are empty strings when absent. Downstream stages
// substitute documented defaults instead of erroring on missing fields.
type Record struct {
	CVEID       string `json:"cve_id"`      // Unique identifier within a run.
	Description string `json:"description"` // May be empty or an NVD placeholder.

	// Published is a flexible date string: full timestamp, date, year-month,
	// or bare year. Parsing is deferred to the decontamination stage.
	Published    string `json:"published"`
	LastModified string `json:"last_modified"`

	CVSSScore *float64 `json:"cvss_score"` // CVSS base score in [0.0, 10.0], nil if absent.
	Severity  string   `json:"severity"`   // CRITICAL/HIGH/MEDIUM/LOW, or empty.
	CWEIDs    []string `json:"cwe_ids"`    // Weakness classification IDs, possibly empty.
	Source    Source   `json:"source"`     // Provenance tag.
}

// HasCVSS reports whether the record carries a CVSS base score.
func (r Record) HasCVSS() bool { return r.CVSSScore != nil }

// NormalizedSeverity maps the record's severity onto the five sampling
// groups, folding absent or unrecognized values into UNKNOWN. Matching is
// case-insensitive so "High" and "HIGH" share one group; the stored severity
// keeps its raw casing.
func (r Record) NormalizedSeverity() string {
	switch sev := strings.ToUpper(r.Severity); sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return sev
	default:
		return SeverityUnknown
	}
}

// ScoredRecord is a Record augmented with the four dimension scores, the
// weighted composite, and the annotations added by each filter stage. The
// original Record is embedded unchanged; stages evolve a ScoredRecord only
// through the With* copy helpers, never in place.
type ScoredRecord struct {
	Record

	RelevanceScore         float64 `json:"relevance_score"`
	CompletenessScore      float64 `json:"completeness_score"`
	SourceCredibilityScore float64 `json:"source_credibility_score"`
	ClarityScore           float64 `json:"clarity_score"`

	// CompositeScore is the weighted sum of the four dimensions, rounded to
	// four decimal places and clamped to [0.0, 1.0].
	CompositeScore float64 `json:"composite_score"`
	TrainingReady  bool    `json:"training_ready"`

	PipelineVersion string `json:"pipeline_version"`
	ScoredAt        string `json:"scored_at"`

	// Filter-stage annotations. Each is written by exactly one stage.
	Tier              Tier   `json:"tier,omitempty"`
	Sampled           bool   `json:"sampled,omitempty"`
	ContaminationFlag bool   `json:"contamination_flag,omitempty"`
	ExclusionReason   string `json:"exclusion_reason,omitempty"`
}

// WithTier returns a copy of the record tagged with the given tier.
func (r ScoredRecord) WithTier(t Tier) ScoredRecord {
	r.Tier = t
	return r
}

// WithSampled returns a copy of the record marked as selected by the
// stratified sampler.
func (r ScoredRecord) WithSampled() ScoredRecord {
	r.Sampled = true
	return r
}

// WithContaminationFlag returns a copy of the record flagged as published
// after the decontamination cutoff.
func (r ScoredRecord) WithContaminationFlag() ScoredRecord {
	r.ContaminationFlag = true
	return r
}

// WithExclusionReason returns a copy of the record carrying the joined
// hard-exclusion reasons.
func (r ScoredRecord) WithExclusionReason(reason string) ScoredRecord {
	r.ExclusionReason = reason
	return r
}
