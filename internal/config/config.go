package config

import (
	"fmt"
	"math"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is unmarshalled once
// from viper (config file + CVECURATOR_* environment + flag overrides) in the
// root command and passed explicitly into each component — no package reads
// ambient global state at scoring/filtering time.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Ingest  IngestConfig  `mapstructure:"ingest" yaml:"ingest"`
	Scoring ScoringConfig `mapstructure:"scoring" yaml:"scoring"`
	Filter  FilterConfig  `mapstructure:"filter" yaml:"filter"`
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths"`
}

// LoggerConfig controls the zap logger set up in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File sink, rotated by lumberjack. Disabled when LogFile is empty.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// IngestConfig controls the NVD and dataset-hub ingestion clients.
type IngestConfig struct {
	NVDBaseURL     string `mapstructure:"nvd_base_url" yaml:"nvd_base_url"`
	ResultsPerPage int    `mapstructure:"results_per_page" yaml:"results_per_page"`
	MaxRecords     int    `mapstructure:"max_records" yaml:"max_records"`

	// RequestIntervalSec is the pause enforced between paginated NVD
	// requests. NVD allows one request per 6 seconds without an API key.
	RequestIntervalSec int `mapstructure:"request_interval_sec" yaml:"request_interval_sec"`
	MaxRetries         int `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSec         int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	HubBaseURL    string `mapstructure:"hub_base_url" yaml:"hub_base_url"`
	HubDataset    string `mapstructure:"hub_dataset" yaml:"hub_dataset"`
	HubMaxRecords int    `mapstructure:"hub_max_records" yaml:"hub_max_records"`
}

// ScoringConfig holds the composite-score weights and the hard-gate bounds.
// The four weights must sum to exactly 1.0; Validate enforces this at
// startup because a skewed sum silently distorts every composite score.
type ScoringConfig struct {
	WeightRelevance         float64 `mapstructure:"weight_relevance" yaml:"weight_relevance"`
	WeightCompleteness      float64 `mapstructure:"weight_completeness" yaml:"weight_completeness"`
	WeightSourceCredibility float64 `mapstructure:"weight_source_credibility" yaml:"weight_source_credibility"`
	WeightClarity           float64 `mapstructure:"weight_clarity" yaml:"weight_clarity"`

	QualityThreshold float64 `mapstructure:"quality_threshold" yaml:"quality_threshold"`

	// Description length bounds (in characters) for the hard gate.
	MinDescriptionLength int `mapstructure:"min_description_length" yaml:"min_description_length"`
	MaxDescriptionLength int `mapstructure:"max_description_length" yaml:"max_description_length"`

	PipelineVersion string `mapstructure:"pipeline_version" yaml:"pipeline_version"`

	// Workers bounds the scoring worker pool. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// FilterConfig holds the thresholds for the four filter stages.
type FilterConfig struct {
	QualityThreshold float64 `mapstructure:"quality_threshold" yaml:"quality_threshold"`
	ReviewFloor      float64 `mapstructure:"review_floor" yaml:"review_floor"`

	// MinCredibility is the hard-exclusion floor for source credibility.
	MinCredibility float64 `mapstructure:"min_credibility" yaml:"min_credibility"`

	TargetPerSeverity int `mapstructure:"target_per_severity" yaml:"target_per_severity"`

	// CutoffDate (YYYY-MM-DD) separates clean records from potential test
	// set contamination. Records published strictly after it are flagged.
	CutoffDate string `mapstructure:"cutoff_date" yaml:"cutoff_date"`
}

// PathsConfig names the JSONL files exchanged between pipeline stages.
type PathsConfig struct {
	RawPath         string `mapstructure:"raw" yaml:"raw"`
	ScoredPath      string `mapstructure:"scored" yaml:"scored"`
	FilterOutputDir string `mapstructure:"filter_output_dir" yaml:"filter_output_dir"`
	ReportPath      string `mapstructure:"report" yaml:"report"`
}

// SetDefaults registers every configuration default with viper. Called before
// the config file and environment are read, so file/env/flag values override
// these in the usual viper precedence order.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "cvecurator")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("ingest.nvd_base_url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("ingest.results_per_page", 100)
	v.SetDefault("ingest.max_records", 500)
	v.SetDefault("ingest.request_interval_sec", 6)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.timeout_sec", 30)
	v.SetDefault("ingest.hub_base_url", "https://datasets-server.huggingface.co")
	v.SetDefault("ingest.hub_dataset", "mrm8488/cve-hf")
	v.SetDefault("ingest.hub_max_records", 200)

	v.SetDefault("scoring.weight_relevance", 0.35)
	v.SetDefault("scoring.weight_completeness", 0.25)
	v.SetDefault("scoring.weight_source_credibility", 0.25)
	v.SetDefault("scoring.weight_clarity", 0.15)
	v.SetDefault("scoring.quality_threshold", 0.60)
	v.SetDefault("scoring.min_description_length", 50)
	v.SetDefault("scoring.max_description_length", 5000)
	v.SetDefault("scoring.pipeline_version", "v0.1.0")

	v.SetDefault("filter.quality_threshold", 0.60)
	v.SetDefault("filter.review_floor", 0.40)
	v.SetDefault("filter.min_credibility", 0.3)
	v.SetDefault("filter.target_per_severity", 50)
	v.SetDefault("filter.cutoff_date", "2024-08-01")

	v.SetDefault("paths.raw", "data/raw/cves_raw.jsonl")
	v.SetDefault("paths.scored", "data/scored/cves_scored.jsonl")
	v.SetDefault("paths.filter_output_dir", "data/filtered")
	v.SetDefault("paths.report", "docs/report.html")
}

// Validate checks the configuration invariants that would otherwise corrupt
// results silently. Called once at process start; violations are fatal.
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.Filter.ReviewFloor > c.Filter.QualityThreshold {
		return fmt.Errorf("filter.review_floor (%.2f) exceeds filter.quality_threshold (%.2f)",
			c.Filter.ReviewFloor, c.Filter.QualityThreshold)
	}
	if c.Filter.TargetPerSeverity < 0 {
		return fmt.Errorf("filter.target_per_severity must be non-negative, got %d", c.Filter.TargetPerSeverity)
	}
	return nil
}

// Validate checks the scoring invariants independently so a Scorer can be
// constructed from a bare ScoringConfig in tests.
func (s ScoringConfig) Validate() error {
	sum := s.WeightRelevance + s.WeightCompleteness + s.WeightSourceCredibility + s.WeightClarity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", sum)
	}
	if s.MinDescriptionLength <= 0 || s.MaxDescriptionLength < s.MinDescriptionLength {
		return fmt.Errorf("invalid description length bounds [%d, %d]",
			s.MinDescriptionLength, s.MaxDescriptionLength)
	}
	return nil
}
