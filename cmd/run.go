package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/filtering"
	"github.com/seclens/cvecurator/internal/ingestion"
	"github.com/seclens/cvecurator/internal/observability"
	"github.com/seclens/cvecurator/internal/reporting"
	"github.com/seclens/cvecurator/internal/scoring"
	"github.com/seclens/cvecurator/internal/storage"
)

// newRunCmd creates the `run` command: all four stages in sequence —
// ingest, score, filter, report — under one run ID.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the full pipeline: ingest, score, filter, report",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("ingest.max_records", cmd.Flags().Lookup("max-records"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			ctx := cmd.Context()
			runID := uuid.New().String()
			logger := observability.GetLogger().With(zap.String("run_id", runID))

			// 1. Ingest
			logger.Info("Stage: ingest", zap.Int("max_records", cfg.Ingest.MaxRecords))
			ingestor := ingestion.NewIngestor(cfg.Ingest, logger)
			ingested, err := ingestor.RunToFile(ctx, cfg.Paths.RawPath)
			if err != nil {
				return fmt.Errorf("ingest stage: %w", err)
			}

			// 2. Score
			logger.Info("Stage: score", zap.Int("records", ingested))
			raw, err := storage.ReadAll[schemas.Record](cfg.Paths.RawPath)
			if err != nil {
				return fmt.Errorf("score stage: %w", err)
			}
			scorer, err := scoring.New(cfg.Scoring)
			if err != nil {
				return err
			}
			scored, err := scorer.ScoreDataset(ctx, raw)
			if err != nil {
				return fmt.Errorf("score stage: %w", err)
			}
			if err := storage.WriteAll(cfg.Paths.ScoredPath, scored); err != nil {
				return fmt.Errorf("score stage: %w", err)
			}

			// 3. Filter
			logger.Info("Stage: filter")
			pipeline := filtering.NewPipeline(cfg.Filter, logger)
			summary, err := pipeline.RunFiles(cfg.Paths.ScoredPath, cfg.Paths.FilterOutputDir)
			if err != nil {
				return fmt.Errorf("filter stage: %w", err)
			}

			// 4. Report
			logger.Info("Stage: report")
			reporter := reporting.NewHTMLReporter(cfg.Paths.ReportPath, logger)
			if err := reporter.Write(scored); err != nil {
				return fmt.Errorf("report stage: %w", err)
			}

			logger.Info("Pipeline complete",
				zap.Int("ingested", ingested),
				zap.Int("training_final", summary.TrainingFinal),
				zap.Int("review_queue", summary.ReviewQueue),
				zap.Int("hard_excluded", summary.HardExcluded),
				zap.Int("flagged_contamination", summary.FlaggedContamination))

			fmt.Printf("\nPipeline complete. Run ID: %s\n", runID)
			fmt.Printf("  ingested:        %d\n", ingested)
			fmt.Printf("  training_final:  %d\n", summary.TrainingFinal)
			fmt.Printf("  review_queue:    %d\n", summary.ReviewQueue)
			fmt.Printf("  hard_excluded:   %d\n", summary.HardExcluded)
			fmt.Printf("  flagged:         %d\n", summary.FlaggedContamination)
			fmt.Printf("  report:          %s\n", cfg.Paths.ReportPath)
			return nil
		},
	}

	runCmd.Flags().Int("max-records", 0, "Maximum number of CVE records to ingest from NVD. (Overrides config/env)")
	return runCmd
}
