package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seclens/cvecurator/api/schemas"
	"github.com/seclens/cvecurator/internal/observability"
	"github.com/seclens/cvecurator/internal/reporting"
	"github.com/seclens/cvecurator/internal/storage"
)

// newReportCmd creates the `report` command: render the HTML summary over
// the scored JSONL.
func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Renders a self-contained HTML report over the scored dataset",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("paths.report", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			logger := observability.GetLogger()
			logger.Info("Stage: report", zap.String("input", cfg.Paths.ScoredPath))

			scored, err := storage.ReadAll[schemas.ScoredRecord](cfg.Paths.ScoredPath)
			if err != nil {
				return fmt.Errorf("load scored records (run `cvecurator score` first?): %w", err)
			}

			reporter := reporting.NewHTMLReporter(cfg.Paths.ReportPath, logger)
			if err := reporter.Write(scored); err != nil {
				return err
			}

			fmt.Printf("Report written to %s\n", cfg.Paths.ReportPath)
			return nil
		},
	}

	reportCmd.Flags().StringP("output", "o", "", "Output path for the HTML report. (Overrides config/env)")
	return reportCmd
}
