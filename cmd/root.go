package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seclens/cvecurator/internal/config"
	"github.com/seclens/cvecurator/internal/observability"
)

var (
	cfgFile string
	// cfg is the resolved application configuration, populated once in
	// PersistentPreRunE before any subcommand runs.
	cfg config.Config
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cvecurator",
	Short: "cvecurator curates CVE records into ML training data tiers.",
	Long: `cvecurator ingests CVE records from NVD and a dataset-hub mirror,
scores each on four quality dimensions, and partitions the scored set into
training-ready, review-queue, and rejected tiers with stratified sampling
and contamination isolation.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		if err := viper.Unmarshal(&cfg); err != nil {
			// Fall back to a minimal logger so the failure is visible.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "cvecurator"})
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		// Weight-sum and threshold invariants are fatal at startup: a bad
		// configuration silently skews every composite score.
		if err := cfg.Validate(); err != nil {
			observability.InitializeLogger(cfg.Logger)
			return fmt.Errorf("invalid configuration: %w", err)
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting cvecurator", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newRunCmd())
}

// initializeConfig reads defaults, the config file, and CVECURATOR_*
// environment variables, in ascending precedence.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CVECURATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}
