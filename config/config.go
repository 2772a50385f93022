// Package config loads the run configuration from file, environment
// variables, and defaults, and maps it onto the pipeline parameters.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"logforge/core"
	"logforge/pipeline"
)

// RunSettings sizes one generation run.
type RunSettings struct {
	// Records generated per source type.
	SIEMCount int `mapstructure:"siem_count" validate:"min=0,max=10000000"`
	ERPCount  int `mapstructure:"erp_count" validate:"min=0,max=10000000"`
	AppCount  int `mapstructure:"app_count" validate:"min=0,max=10000000"`

	// WindowHours is the span of the generation window ending at run time.
	WindowHours int `mapstructure:"window_hours" validate:"min=1,max=8760"`

	// Seed fixes every random draw. 0 means derive a seed from the clock
	// at run time.
	Seed int64 `mapstructure:"seed"`
}

// AnomalySettings holds the per-source anomaly injection rates.
type AnomalySettings struct {
	SIEMRate float64 `mapstructure:"siem_rate" validate:"min=0,max=1"`
	ERPRate  float64 `mapstructure:"erp_rate" validate:"min=0,max=1"`
	AppRate  float64 `mapstructure:"app_rate" validate:"min=0,max=1"`
}

// CorrelationSettings holds the cross-source correlation fractions.
type CorrelationSettings struct {
	ShareFraction  float64 `mapstructure:"share_fraction" validate:"min=0,max=1"`
	InjectFraction float64 `mapstructure:"inject_fraction" validate:"min=0,max=1"`
}

// FieldLibrarySettings points at an optional vocabulary overlay file.
type FieldLibrarySettings struct {
	// Path is a YAML overlay merged over the built-in vocabularies
	// (LOGFORGE_FIELD_LIBRARY). Empty uses the built-ins unchanged.
	Path string `mapstructure:"path"`
}

// ScoringSettings points at an optional severity scoring config file.
type ScoringSettings struct {
	// Path is a YAML file replacing the default scoring tiers and
	// thresholds (LOGFORGE_SCORING). Empty uses the defaults.
	Path string `mapstructure:"path"`
}

// QualitySettings tunes the dataset checker.
type QualitySettings struct {
	LevelTolerance float64 `mapstructure:"level_tolerance" validate:"gt=0,max=0.5"`
	MinSample      int     `mapstructure:"min_sample" validate:"min=1"`
	SchemaSample   int     `mapstructure:"schema_sample" validate:"min=1"`
	MatchTimeoutMs int     `mapstructure:"match_timeout_ms" validate:"min=1,max=60000"`
}

// OutputSettings controls labeled dataset export.
type OutputSettings struct {
	// Dir is the export directory (LOGFORGE_OUTPUT_DIR, default: ./data/datasets)
	Dir    string `mapstructure:"dir" validate:"required"`
	Format string `mapstructure:"format" validate:"oneof=jsonl csv"`
	// Compress writes zstd-compressed output files.
	Compress bool `mapstructure:"compress"`
}

// ClickHouseSink configures the ClickHouse sink.
type ClickHouseSink struct {
	Enabled        bool   `mapstructure:"enabled"`
	Addr           string `mapstructure:"addr"`
	Database       string `mapstructure:"database"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TLS            bool   `mapstructure:"tls"`
	MaxPoolSize    int    `mapstructure:"max_pool_size" validate:"min=1"`
	BatchSize      int    `mapstructure:"batch_size" validate:"min=1"`
	Deduplication  bool   `mapstructure:"deduplication"`
	DedupCacheSize int    `mapstructure:"dedup_cache_size" validate:"min=1"`
}

// SQLiteSink configures the SQLite sink.
type SQLiteSink struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the database file (LOGFORGE_SQLITE_PATH, default: ./data/logforge.db)
	Path string `mapstructure:"path"`
}

// MongoSink configures the MongoDB sink.
type MongoSink struct {
	Enabled            bool   `mapstructure:"enabled"`
	URI                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	Collection         string `mapstructure:"collection"`
	BatchInsertTimeout int    `mapstructure:"batch_insert_timeout" validate:"min=1"` // seconds
	MaxPoolSize        uint64 `mapstructure:"max_pool_size"`
}

// RedisSink configures the Redis stream sink.
type RedisSink struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len" validate:"min=0"`
	PoolSize int    `mapstructure:"pool_size" validate:"min=1"`
}

// FileSink configures the flat file sink.
type FileSink struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	Format   string `mapstructure:"format" validate:"omitempty,oneof=jsonl msgpack"`
	Compress bool   `mapstructure:"compress"`
}

// SinkSettings bundles every sink plus the shared write rate limit.
type SinkSettings struct {
	ClickHouse ClickHouseSink `mapstructure:"clickhouse"`
	SQLite     SQLiteSink     `mapstructure:"sqlite"`
	MongoDB    MongoSink      `mapstructure:"mongodb"`
	Redis      RedisSink      `mapstructure:"redis"`
	File       FileSink       `mapstructure:"file"`

	// RateLimit caps records written per second across all sinks.
	// 0 disables the limit.
	RateLimit int `mapstructure:"rate_limit" validate:"min=0"`
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingSettings controls the zap logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// Config holds all configuration for logforge.
type Config struct {
	Run          RunSettings          `mapstructure:"run"`
	Anomaly      AnomalySettings      `mapstructure:"anomaly"`
	Correlation  CorrelationSettings  `mapstructure:"correlation"`
	FieldLibrary FieldLibrarySettings `mapstructure:"field_library"`
	Scoring      ScoringSettings      `mapstructure:"scoring"`
	Quality      QualitySettings      `mapstructure:"quality"`
	Output       OutputSettings       `mapstructure:"output"`
	Sinks        SinkSettings         `mapstructure:"sinks"`
	Metrics      MetricsSettings      `mapstructure:"metrics"`
	Logging      LoggingSettings      `mapstructure:"logging"`
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("run.siem_count", 1000)
	viper.SetDefault("run.erp_count", 1000)
	viper.SetDefault("run.app_count", 1000)
	viper.SetDefault("run.window_hours", 24)
	viper.SetDefault("run.seed", 0) // 0 = derive from clock at run time

	viper.SetDefault("anomaly.siem_rate", 0.05)
	viper.SetDefault("anomaly.erp_rate", 0.05)
	viper.SetDefault("anomaly.app_rate", 0.05)

	viper.SetDefault("correlation.share_fraction", 0.3)
	viper.SetDefault("correlation.inject_fraction", 0.4)

	viper.SetDefault("field_library.path", "")
	viper.SetDefault("scoring.path", "")

	viper.SetDefault("quality.level_tolerance", 0.05)
	viper.SetDefault("quality.min_sample", 500)
	viper.SetDefault("quality.schema_sample", 100)
	viper.SetDefault("quality.match_timeout_ms", 100)

	viper.SetDefault("output.dir", "./data/datasets")
	viper.SetDefault("output.format", "jsonl")
	viper.SetDefault("output.compress", false)

	// Use 127.0.0.1 instead of localhost to avoid IPv6 resolution issues on Windows
	viper.SetDefault("sinks.clickhouse.enabled", false)
	viper.SetDefault("sinks.clickhouse.addr", "127.0.0.1:9000")
	viper.SetDefault("sinks.clickhouse.database", "logforge")
	viper.SetDefault("sinks.clickhouse.username", "default")
	viper.SetDefault("sinks.clickhouse.password", "")
	viper.SetDefault("sinks.clickhouse.tls", false)
	viper.SetDefault("sinks.clickhouse.max_pool_size", 10)
	viper.SetDefault("sinks.clickhouse.batch_size", 1000)
	viper.SetDefault("sinks.clickhouse.deduplication", true)
	viper.SetDefault("sinks.clickhouse.dedup_cache_size", 10000)

	viper.SetDefault("sinks.sqlite.enabled", false)
	viper.SetDefault("sinks.sqlite.path", "./data/logforge.db")

	viper.SetDefault("sinks.mongodb.enabled", false)
	viper.SetDefault("sinks.mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("sinks.mongodb.database", "logforge")
	viper.SetDefault("sinks.mongodb.collection", "records")
	viper.SetDefault("sinks.mongodb.batch_insert_timeout", 5)
	viper.SetDefault("sinks.mongodb.max_pool_size", 10)

	viper.SetDefault("sinks.redis.enabled", false)
	viper.SetDefault("sinks.redis.addr", "localhost:6379")
	viper.SetDefault("sinks.redis.password", "")
	viper.SetDefault("sinks.redis.db", 0)
	viper.SetDefault("sinks.redis.stream", "logforge:records")
	viper.SetDefault("sinks.redis.max_len", 100000)
	viper.SetDefault("sinks.redis.pool_size", 10)

	viper.SetDefault("sinks.file.enabled", false)
	viper.SetDefault("sinks.file.path", "./data/records.jsonl")
	viper.SetDefault("sinks.file.format", "jsonl")
	viper.SetDefault("sinks.file.compress", false)

	viper.SetDefault("sinks.rate_limit", 0)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9180")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("LOGFORGE")
	viper.AutomaticEnv()

	// Explicit environment variable bindings for common overrides
	// These allow shorter, cleaner env var names
	_ = viper.BindEnv("run.seed", "LOGFORGE_SEED")
	_ = viper.BindEnv("field_library.path", "LOGFORGE_FIELD_LIBRARY")
	_ = viper.BindEnv("scoring.path", "LOGFORGE_SCORING")
	_ = viper.BindEnv("output.dir", "LOGFORGE_OUTPUT_DIR")
	_ = viper.BindEnv("sinks.sqlite.path", "LOGFORGE_SQLITE_PATH")
	_ = viper.BindEnv("sinks.clickhouse.addr", "LOGFORGE_CLICKHOUSE_ADDR")
	_ = viper.BindEnv("sinks.mongodb.uri", "LOGFORGE_MONGODB_URI")
	_ = viper.BindEnv("sinks.redis.addr", "LOGFORGE_REDIS_ADDR")
	_ = viper.BindEnv("logging.level", "LOGFORGE_LOG_LEVEL")
}

// LoadConfig loads configuration from file and environment variables. An
// explicit path must exist; with an empty path the default locations are
// searched and a missing file falls back to defaults.
func LoadConfig(path string) (*Config, error) {
	setDefaults()
	loadFromEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	} else {
		viper.SetConfigName("logforge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		if err := viper.ReadInConfig(); err != nil {
			// Config file not found, will use defaults and env vars
			_ = err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration for correctness. Out-of-range
// values are rejected, never clamped.
func validateConfig(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return err
	}

	if config.Sinks.ClickHouse.Enabled && config.Sinks.ClickHouse.Addr == "" {
		return fmt.Errorf("clickhouse sink enabled but addr is empty")
	}
	if config.Sinks.SQLite.Enabled && config.Sinks.SQLite.Path == "" {
		return fmt.Errorf("sqlite sink enabled but path is empty")
	}
	if config.Sinks.MongoDB.Enabled {
		if !strings.HasPrefix(config.Sinks.MongoDB.URI, "mongodb://") && !strings.HasPrefix(config.Sinks.MongoDB.URI, "mongodb+srv://") {
			return fmt.Errorf("invalid MongoDB URI: must start with mongodb:// or mongodb+srv://")
		}
		parsed, err := url.Parse(config.Sinks.MongoDB.URI)
		if err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("invalid MongoDB URI: missing host")
		}
		if config.Sinks.MongoDB.Database == "" {
			return fmt.Errorf("MongoDB database cannot be empty")
		}
		if config.Sinks.MongoDB.Collection == "" {
			return fmt.Errorf("MongoDB collection cannot be empty")
		}
	}
	if config.Sinks.Redis.Enabled {
		if config.Sinks.Redis.Addr == "" {
			return fmt.Errorf("redis sink enabled but addr is empty")
		}
		if config.Sinks.Redis.Stream == "" {
			return fmt.Errorf("redis sink enabled but stream is empty")
		}
	}
	if config.Sinks.File.Enabled {
		if config.Sinks.File.Path == "" {
			return fmt.Errorf("file sink enabled but path is empty")
		}
		if config.Sinks.File.Format == "" {
			return fmt.Errorf("file sink enabled but format is empty")
		}
	}
	if config.Metrics.Enabled && config.Metrics.Addr == "" {
		return fmt.Errorf("metrics enabled but addr is empty")
	}

	return nil
}

// RunConfig maps the configuration onto pipeline parameters for a run whose
// window ends at the given time.
func (c *Config) RunConfig(end time.Time) pipeline.RunConfig {
	return pipeline.RunConfig{
		Counts: map[core.SourceType]int{
			core.SourceSIEM: c.Run.SIEMCount,
			core.SourceERP:  c.Run.ERPCount,
			core.SourceApp:  c.Run.AppCount,
		},
		Window: core.NewTimeWindow(end, time.Duration(c.Run.WindowHours)*time.Hour),
		AnomalyRates: map[core.SourceType]float64{
			core.SourceSIEM: c.Anomaly.SIEMRate,
			core.SourceERP:  c.Anomaly.ERPRate,
			core.SourceApp:  c.Anomaly.AppRate,
		},
		ShareFraction:  c.Correlation.ShareFraction,
		InjectFraction: c.Correlation.InjectFraction,
		Seed:           c.Run.Seed,
	}
}

// MatchTimeout returns the quality regex timeout as a duration.
func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.Quality.MatchTimeoutMs) * time.Millisecond
}
