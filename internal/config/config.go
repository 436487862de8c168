// Package config loads service settings from an optional YAML file with
// environment-variable overrides (prefix DROUGHT_ETL).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// Config holds all service settings.
type Config struct {
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Data     DataConfig     `mapstructure:"data"`
	ERA5     ERA5Config     `mapstructure:"era5"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
}

// KafkaConfig holds the request/result transport settings.
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	SourceTopic string   `mapstructure:"source_topic"`
	SinkTopic   string   `mapstructure:"sink_topic"`
	GroupID     string   `mapstructure:"group_id"`
}

// HTTPConfig holds the health/metrics endpoint settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PipelineConfig holds the batch loop settings.
type PipelineConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DataConfig holds directory roots, the anomaly baseline window, and the
// acquisition backend for SPI and SMA ("ecmwf" or "gdo"; fAPAR is always
// GDO-sourced). The baseline is fixed at configuration time and shared by
// every indicator in a run.
type DataConfig struct {
	InputDir      string `mapstructure:"input_dir"`
	OutputDir     string `mapstructure:"output_dir"`
	BaselineStart string `mapstructure:"baseline_start"` // YYYYMMDD
	BaselineEnd   string `mapstructure:"baseline_end"`   // YYYYMMDD
	Backend       string `mapstructure:"backend"`
}

// ERA5Config holds the reanalysis endpoint settings.
type ERA5Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// MinIOConfig holds optional object-storage publication of artifacts. When
// disabled, artifacts stay on the local filesystem only.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Load reads configuration, applying defaults where unset. An empty path
// loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DROUGHT_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.source_topic", "drought-analysis-requests")
	v.SetDefault("kafka.sink_topic", "drought-analysis-results")
	v.SetDefault("kafka.group_id", "drought-cdi-etl")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("pipeline.batch_size", 10)
	v.SetDefault("pipeline.shutdown_timeout", "10s")

	v.SetDefault("data.input_dir", "./data/input")
	v.SetDefault("data.output_dir", "./data/output")
	v.SetDefault("data.baseline_start", "19850101")
	v.SetDefault("data.baseline_end", "20221231")
	v.SetDefault("data.backend", "gdo")

	v.SetDefault("era5.base_url", "https://cds.climate.copernicus.eu/api")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.bucket", "drought-artifacts")
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Kafka.SourceTopic == "" {
		return fmt.Errorf("kafka.source_topic is required")
	}
	if c.Kafka.SinkTopic == "" {
		return fmt.Errorf("kafka.sink_topic is required")
	}
	if c.Pipeline.BatchSize < 1 || c.Pipeline.BatchSize > 1000 {
		return fmt.Errorf("pipeline.batch_size must be between 1 and 1000")
	}
	if c.Pipeline.ShutdownTimeout <= 0 {
		return fmt.Errorf("pipeline.shutdown_timeout must be positive")
	}

	start, err := domain.ParseDate(c.Data.BaselineStart)
	if err != nil {
		return fmt.Errorf("data.baseline_start: %w", err)
	}
	end, err := domain.ParseDate(c.Data.BaselineEnd)
	if err != nil {
		return fmt.Errorf("data.baseline_end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("data.baseline_start must precede data.baseline_end")
	}

	switch c.Data.Backend {
	case "ecmwf", "gdo":
	default:
		return fmt.Errorf("data.backend must be one of: ecmwf, gdo")
	}
	if c.Data.Backend == "ecmwf" && c.ERA5.BaseURL == "" {
		return fmt.Errorf("era5.base_url is required for the ecmwf backend")
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("minio.endpoint is required when minio is enabled")
		}
		if c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" {
			return fmt.Errorf("minio credentials are required when minio is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}

// Baseline returns the parsed anomaly reference window. Validate has already
// checked the fields, so parse errors cannot occur after a successful Load.
func (c *Config) Baseline() (start, end time.Time) {
	start, _ = domain.ParseDate(c.Data.BaselineStart)
	end, _ = domain.ParseDate(c.Data.BaselineEnd)
	return start, end
}
