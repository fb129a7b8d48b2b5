package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/filtering"
	"github.com/seclens/cvecurator/internal/observability"
	"github.com/seclens/cvecurator/internal/storage"
)

// execute runs the shared root command with fresh global state, capturing
// combined output. The command tree and viper are process globals, so these
// tests reset both and must not run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	observability.ResetForTest()

	// Cobra's auto-generated --version flag keeps its value between Execute
	// calls on the shared command; clear it so earlier tests don't leak state.
	if f := rootCmd.Flags().Lookup("version"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootNoArgsShowsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "cvecurator ingests CVE records")
	assert.Contains(t, out, "Available Commands:")
}

func TestRootRegistersSubcommands(t *testing.T) {
	expected := []string{"ingest", "score", "filter", "report", "run"}
	for _, name := range expected {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, "subcommand %s", name)
		assert.Equal(t, name, cmd.Name())
	}
}

// TestInvalidWeightsFailFast pins the startup invariant: skewed scoring
// weights abort before any subcommand logic runs.
func TestInvalidWeightsFailFast(t *testing.T) {
	t.Setenv("CVECURATOR_SCORING_WEIGHT_CLARITY", "0.5")

	_, err := execute(t, "filter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

// TestFilterCommandEndToEnd drives the filter subcommand through the real
// CLI path: env-configured paths, scored JSONL in, four partitions out.
func TestFilterCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	scoredPath := filepath.Join(dir, "cves_scored.jsonl")
	outputDir := filepath.Join(dir, "filtered")

	t.Setenv("CVECURATOR_PATHS_SCORED", scoredPath)
	t.Setenv("CVECURATOR_PATHS_FILTER_OUTPUT_DIR", outputDir)
	t.Setenv("CVECURATOR_LOGGER_LEVEL", "error")

	records := []schemas.ScoredRecord{
		{
			Record: schemas.Record{
				CVEID:       "CVE-2023-00001",
				Description: "A SQL injection vulnerability allows remote attackers to execute arbitrary commands.",
				Published:   "2023-06-15",
				Severity:    "HIGH",
				Source:      schemas.SourceNVD,
			},
			RelevanceScore:         0.9,
			CompletenessScore:      1.0,
			SourceCredibilityScore: 1.0,
			ClarityScore:           0.7,
			CompositeScore:         0.92,
			TrainingReady:          true,
		},
		{
			Record: schemas.Record{
				CVEID:       "CVE-2023-00002",
				Description: "Minor issue with limited impact on older builds of the affected component.",
				Published:   "2023-01-01",
				Source:      schemas.SourceHub,
			},
			SourceCredibilityScore: 0.6,
			ClarityScore:           0.7,
			CompositeScore:         0.45,
		},
	}
	require.NoError(t, storage.WriteAll(scoredPath, records))

	_, err := execute(t, "filter")
	require.NoError(t, err)

	final, err := storage.ReadAll[schemas.ScoredRecord](filepath.Join(outputDir, filtering.TrainingFinalFile))
	require.NoError(t, err)
	require.Len(t, final, 1)
	assert.Equal(t, "CVE-2023-00001", final[0].CVEID)
	assert.True(t, final[0].Sampled)

	review, err := storage.ReadAll[schemas.ScoredRecord](filepath.Join(outputDir, filtering.ReviewQueueFile))
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, "CVE-2023-00002", review[0].CVEID)

	for _, name := range []string{filtering.RejectedFile, filtering.FlaggedContaminationFile} {
		_, statErr := os.Stat(filepath.Join(outputDir, name))
		assert.NoError(t, statErr, "expected %s to exist", name)
	}
}
