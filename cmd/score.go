package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/observability"
	"github.com/seclens/cvecurator/internal/reporting"
	"github.com/seclens/cvecurator/internal/scoring"
	"github.com/seclens/cvecurator/internal/storage"
)

// newScoreCmd creates the `score` command: read the raw JSONL, compute the
// composite quality scores, and write the scored JSONL.
func newScoreCmd() *cobra.Command {
	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Scores raw CVE records on four quality dimensions",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("scoring.workers", cmd.Flags().Lookup("workers")); err != nil {
				return err
			}
			return viper.BindPFlag("paths.scored", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			logger := observability.GetLogger()
			logger.Info("Stage: score", zap.String("input", cfg.Paths.RawPath))

			raw, err := storage.ReadAll[schemas.Record](cfg.Paths.RawPath)
			if err != nil {
				return fmt.Errorf("load raw records (run `cvecurator ingest` first?): %w", err)
			}
			logger.Info("Loaded raw records", zap.Int("count", len(raw)))

			scorer, err := scoring.New(cfg.Scoring)
			if err != nil {
				return err
			}
			scored, err := scorer.ScoreDataset(cmd.Context(), raw)
			if err != nil {
				return err
			}
			if err := storage.WriteAll(cfg.Paths.ScoredPath, scored); err != nil {
				return fmt.Errorf("write scored records: %w", err)
			}

			stats := reporting.ComputeStats(scored)
			logger.Info("Scoring complete",
				zap.Int("total", stats.Total),
				zap.Int("training_ready", stats.TrainingReady),
				zap.Float64("training_ready_pct", stats.TrainingPct),
				zap.Float64("avg_relevance", stats.AvgRelevance),
				zap.Float64("avg_completeness", stats.AvgCompleteness),
				zap.Float64("avg_credibility", stats.AvgCredibility),
				zap.Float64("avg_clarity", stats.AvgClarity),
				zap.Float64("avg_composite", stats.AvgComposite))

			fmt.Printf("Scored %d records (%d training-ready) to %s\n",
				stats.Total, stats.TrainingReady, cfg.Paths.ScoredPath)
			return nil
		},
	}

	scoreCmd.Flags().Int("workers", 0, "Scoring worker count, 0 = GOMAXPROCS. (Overrides config/env)")
	scoreCmd.Flags().StringP("output", "o", "", "Output path for the scored JSONL. (Overrides config/env)")
	return scoreCmd
}
