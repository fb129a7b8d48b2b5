package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seclens/cvecurator/internal/filtering"
	"github.com/seclens/cvecurator/internal/observability"
)

// newFilterCmd creates the `filter` command: run hard exclusions, tiering,
// stratified sampling, and decontamination over the scored JSONL, writing
// the four output partitions.
func newFilterCmd() *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Partitions scored records into training-ready, review, and rejected tiers",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("filter.cutoff_date", cmd.Flags().Lookup("cutoff")); err != nil {
				return err
			}
			if err := viper.BindPFlag("filter.target_per_severity", cmd.Flags().Lookup("target-per-severity")); err != nil {
				return err
			}
			return viper.BindPFlag("paths.filter_output_dir", cmd.Flags().Lookup("output-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			logger := observability.GetLogger()
			logger.Info("Stage: filter", zap.String("input", cfg.Paths.ScoredPath))

			pipeline := filtering.NewPipeline(cfg.Filter, logger)
			summary, err := pipeline.RunFiles(cfg.Paths.ScoredPath, cfg.Paths.FilterOutputDir)
			if err != nil {
				return err
			}

			logger.Info("Filter summary",
				zap.Int("total_input", summary.TotalInput),
				zap.Int("hard_excluded", summary.HardExcluded),
				zap.Int("training_ready_raw", summary.TrainingReadyRaw),
				zap.Int("review_queue", summary.ReviewQueue),
				zap.Int("tier_rejected", summary.TierRejected),
				zap.Int("sampled", summary.Sampled),
				zap.Int("training_final", summary.TrainingFinal),
				zap.Int("flagged_contamination", summary.FlaggedContamination))

			fmt.Printf("Filter complete: %d in, %d training-final, %d review, %d excluded, %d flagged → %s\n",
				summary.TotalInput, summary.TrainingFinal, summary.ReviewQueue,
				summary.HardExcluded, summary.FlaggedContamination, cfg.Paths.FilterOutputDir)
			return nil
		},
	}

	filterCmd.Flags().String("cutoff", "", "Contamination cutoff date (YYYY-MM-DD). (Overrides config/env)")
	filterCmd.Flags().Int("target-per-severity", 0, "Stratified sample cap per severity group. (Overrides config/env)")
	filterCmd.Flags().String("output-dir", "", "Directory for the four filter output files. (Overrides config/env)")
	return filterCmd
}
