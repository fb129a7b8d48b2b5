// Package scoring computes the multi-dimensional quality score that decides
// whether a CVE record is usable as training source material. Four weighted
// dimensions (relevance, completeness, source credibility, clarity) feed a
// composite in [0.0, 1.0], behind a hard description-length gate.
package scoring

import (
	"context"
	"math"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/config"
)

// securityKeywords is the relevance vocabulary. Matching iterates this slice
// in order (not the description) so the 0.3 keyword-bonus cap is reached
// deterministically regardless of description layout.
var securityKeywords = []string{
	"exploit",
	"vulnerability",
	"injection",
	"overflow",
	"bypass",
	"authentication",
	"privilege",
	"remote code execution",
	"xss",
	"sqli",
	"rce",
	"buffer overflow",
	"use-after-free",
}

// Scorer maps raw records to scored records. It is immutable after New and
// safe for concurrent use; all thresholds come from the explicit config, not
// package state, so tests can exercise alternate weights without interference.
type Scorer struct {
	cfg config.ScoringConfig
}

// New builds a Scorer, rejecting configurations whose weights do not sum to
// 1.0 — a skewed sum would silently distort every composite score.
func New(cfg config.ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// ScoreRelevance measures security relevance in [0.0, 1.0]: CVSS magnitude
// (+0.4 at >=7.0, +0.2 at >=4.0), presence of CWE classifications (+0.3),
// and up to +0.3 of keyword bonus (+0.1 per distinct vocabulary hit).
func (s *Scorer) ScoreRelevance(r schemas.Record) float64 {
	score := 0.0

	if r.HasCVSS() {
		switch {
		case *r.CVSSScore >= 7.0:
			score += 0.4
		case *r.CVSSScore >= 4.0:
			score += 0.2
		}
	}

	if len(r.CWEIDs) > 0 {
		score += 0.3
	}

	description := strings.ToLower(r.Description)
	bonus := 0.0
	for _, kw := range securityKeywords {
		if strings.Contains(description, kw) {
			bonus += 0.1
		}
		if bonus >= 0.3 {
			break
		}
	}
	score += bonus

	return math.Min(score, 1.0)
}

// ScoreCompleteness measures how fully populated the record is: an in-bounds
// description (+0.4), CVSS (+0.2), severity (+0.1), CWE IDs (+0.2), and a
// publication date (+0.1).
func (s *Scorer) ScoreCompleteness(r schemas.Record) float64 {
	score := 0.0
	descLen := utf8.RuneCountInString(r.Description)

	if r.Description != "" &&
		descLen >= s.cfg.MinDescriptionLength && descLen <= s.cfg.MaxDescriptionLength {
		score += 0.4
	}
	if r.HasCVSS() {
		score += 0.2
	}
	if r.Severity != "" {
		score += 0.1
	}
	if len(r.CWEIDs) > 0 {
		score += 0.2
	}
	if r.Published != "" {
		score += 0.1
	}

	return math.Min(score, 1.0)
}

// ScoreSourceCredibility rates the record's provenance: 1.0 for the primary
// authority, 0.6 for the mirror, 0.3 for anything else, with a +0.1 boost
// when a CVSS score is published.
func (s *Scorer) ScoreSourceCredibility(r schemas.Record) float64 {
	var base float64
	switch schemas.Source(strings.ToLower(string(r.Source))) {
	case schemas.SourceNVD:
		base = 1.0
	case schemas.SourceHub:
		base = 0.6
	default:
		base = 0.3
	}

	if r.HasCVSS() {
		base += 0.1
	}
	return math.Min(base, 1.0)
}

// ScoreClarity rates description readability by length band. NVD placeholder
// text marks an administratively withdrawn or unassigned entry and scores
// 0.0 unconditionally, whatever the length.
func (s *Scorer) ScoreClarity(r schemas.Record) float64 {
	if strings.Contains(r.Description, "** RESERVED **") ||
		strings.Contains(r.Description, "** REJECT **") {
		return 0.0
	}

	switch descLen := utf8.RuneCountInString(r.Description); {
	case descLen >= 100 && descLen <= 1000:
		return 1.0
	case (descLen >= 50 && descLen < 100) || (descLen >= 1001 && descLen <= 2000):
		return 0.7
	case descLen >= 2001 && descLen <= 5000:
		return 0.4
	default:
		return 0.0
	}
}

// ComputeComposite scores one record. A missing or out-of-bounds description
// is a fast-reject: all four dimensions and the composite are forced to 0.0
// without running the scorers. Otherwise the composite is the weighted sum of
// the four dimensions, rounded to 4 decimals and clamped to [0.0, 1.0], with
// training_ready set at the quality threshold.
func (s *Scorer) ComputeComposite(r schemas.Record) schemas.ScoredRecord {
	scored := schemas.ScoredRecord{Record: r}

	descLen := utf8.RuneCountInString(r.Description)
	if r.Description == "" ||
		descLen < s.cfg.MinDescriptionLength || descLen > s.cfg.MaxDescriptionLength {
		return scored
	}

	relevance := s.ScoreRelevance(r)
	completeness := s.ScoreCompleteness(r)
	credibility := s.ScoreSourceCredibility(r)
	clarity := s.ScoreClarity(r)

	composite := s.cfg.WeightRelevance*relevance +
		s.cfg.WeightCompleteness*completeness +
		s.cfg.WeightSourceCredibility*credibility +
		s.cfg.WeightClarity*clarity
	composite = round4(clamp01(composite))

	scored.RelevanceScore = round4(relevance)
	scored.CompletenessScore = round4(completeness)
	scored.SourceCredibilityScore = round4(credibility)
	scored.ClarityScore = round4(clarity)
	scored.CompositeScore = composite
	scored.TrainingReady = composite >= s.cfg.QualityThreshold
	return scored
}

// ScoreDataset scores every record independently and tags each with the
// pipeline version and one shared timestamp for the batch. Records share no
// state, so the batch fans out over a bounded worker pool; output order
// matches input order.
func (s *Scorer) ScoreDataset(ctx context.Context, records []schemas.Record) ([]schemas.ScoredRecord, error) {
	scoredAt := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	scored := make([]schemas.ScoredRecord, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := s.ComputeComposite(rec)
			out.PipelineVersion = s.cfg.PipelineVersion
			out.ScoredAt = scoredAt
			scored[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(v, 1.0))
}

// round4 rounds to 4 decimal places, half away from zero. Exact 4-decimal
// ties do not occur in binary floating point for these weight combinations,
// so the tie-breaking direction never surfaces in outputs.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
