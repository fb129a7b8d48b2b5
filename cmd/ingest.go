package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seclens/cvecurator/internal/ingestion"
	"github.com/seclens/cvecurator/internal/observability"
)

// newIngestCmd creates the `ingest` command: fetch raw CVE records from both
// sources and write the deduplicated raw JSONL.
func newIngestCmd() *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetches CVE records from NVD and the dataset-hub mirror",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("ingest.max_records", cmd.Flags().Lookup("max-records")); err != nil {
				return err
			}
			return viper.BindPFlag("paths.raw", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			logger := observability.GetLogger()
			logger.Info("Stage: ingest", zap.Int("max_records", cfg.Ingest.MaxRecords))

			ingestor := ingestion.NewIngestor(cfg.Ingest, logger)
			count, err := ingestor.RunToFile(cmd.Context(), cfg.Paths.RawPath)
			if err != nil {
				return err
			}

			fmt.Printf("Ingested %d records to %s\n", count, cfg.Paths.RawPath)
			return nil
		},
	}

	ingestCmd.Flags().Int("max-records", 0, "Maximum number of CVE records to ingest from NVD. (Overrides config/env)")
	ingestCmd.Flags().StringP("output", "o", "", "Output path for the raw JSONL. (Overrides config/env)")
	return ingestCmd
}
