package filtering

import (
	"fmt"
	"strings"
	"time"

	"github.com/seclens/cvecurator/api/schemas"
)

// publishedLayouts is the ordered list of formats attempted when parsing a
// record's publication date: timestamp with fractional seconds, plain
// timestamp, date, year-month, bare year. The first success wins.
var publishedLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parsePublished resolves a flexible date string to a UTC date. Each layout
// is tried against the full string and, when the string is longer, against
// its layout-length prefix — so "2025-01-15T10:00:00Z" still resolves via
// the date layout. Returns ok=false when no layout matches; callers treat
// that as unparseable, never as an error.
func parsePublished(published string) (time.Time, bool) {
	s := strings.TrimSpace(published)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return toDate(t), true
		}
		if len(s) > len(layout) {
			if t, err := time.Parse(layout, s[:len(layout)]); err == nil {
				return toDate(t), true
			}
		}
	}
	return time.Time{}, false
}

// toDate truncates a timestamp to its calendar date; contamination is
// decided at day granularity.
func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ApplyDecontamination isolates records published strictly after the cutoff
// date, which may overlap benchmarks built from post-cutoff CVEs. The policy
// on missing or unparseable dates is deliberately conservative: such records
// are treated as clean, never flagged on ambiguous data. Flagged records are
// isolated rather than dropped so downstream users can make an informed call.
func ApplyDecontamination(records []schemas.ScoredRecord, cutoffDate string) (clean, flagged []schemas.ScoredRecord, err error) {
	cutoff, err := time.Parse("2006-01-02", cutoffDate)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cutoff date %q: %w", cutoffDate, err)
	}
	cutoff = toDate(cutoff)

	for _, rec := range records {
		published, ok := parsePublished(rec.Published)
		if ok && published.After(cutoff) {
			flagged = append(flagged, rec.WithContaminationFlag())
		} else {
			clean = append(clean, rec)
		}
	}
	return clean, flagged, nil
}
