// Package config defines all configuration structures for the curation
// engine.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// PathsConfig locates the on-disk workspace shared by the build and assembly
// stages.  All artifact paths (model files, index, assembled output) are
// derived from CacheDir; Prefix distinguishes parallel resource sets (e.g.
// an abbreviated test corpus) the way the upstream search stage names them.
type PathsConfig struct {
	CacheDir string `mapstructure:"cache_dir"`
	Prefix   string `mapstructure:"prefix"`
}

// BuildConfig holds model-build tunables.
type BuildConfig struct {
	// AlignMode is the graph-matching tolerance requested from the aligner:
	// "strict" | "relaxed" | "relaxed-stereo".
	AlignMode string `mapstructure:"align_mode"`

	// Workers is the number of concurrent parent batches.  Each parent
	// chemical entity is owned by exactly one worker for the whole run.
	Workers int `mapstructure:"workers"`

	// AlignTimeout bounds a single (reference, candidate) alignment attempt.
	// Expiry is treated as a rejection of that candidate, never as fatal.
	AlignTimeout time.Duration `mapstructure:"align_timeout"`

	// StrictSize rejects candidates whose fit atom count exceeds the
	// reference atom count by more than SizeSlack before aligning.
	StrictSize bool `mapstructure:"strict_size"`
	SizeSlack  int  `mapstructure:"size_slack"`

	// LocalPrefix is the prefix for build-local model identifiers.
	LocalPrefix string `mapstructure:"local_prefix"`

	// MaxModelsPerParent caps the local sequence per parent.
	MaxModelsPerParent int `mapstructure:"max_models_per_parent"`

	// StopSentinel is an optional file path consulted between parent
	// entities; when it appears the worker pool drains cooperatively.
	StopSentinel string `mapstructure:"stop_sentinel"`
}

// AssemblyConfig holds assembly-stage tunables.
type AssemblyConfig struct {
	// MaxRFactor is the limiting crystallographic R-value; models above it
	// are filtered out of the assembled set.
	MaxRFactor float64 `mapstructure:"max_r_factor"`

	// PublicPrefix is the prefix for published model identifiers.
	PublicPrefix string `mapstructure:"public_prefix"`

	// SuppressDuplicates drops repeat matchIds per parent, keeping only the
	// highest-priority occurrence.
	SuppressDuplicates bool `mapstructure:"suppress_duplicates"`

	// CanonicalSupremacy drops tautomer/protomer models for a parent once a
	// canonical model has been accepted.
	CanonicalSupremacy bool `mapstructure:"canonical_supremacy"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the prior-audit
// store.  The store is optional: when Enabled is false the assembly stage
// falls back to the file-based audit provider.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the alignment-result
// cache.  Optional; disabled means every alignment is recomputed.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds object-storage parameters for archiving assembled model
// files.  Optional.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// KafkaConfig holds release-event producer parameters.  Optional.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the engine.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct; the core never reads environment state directly.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Build    BuildConfig    `mapstructure:"build"`
	Assembly AssemblyConfig `mapstructure:"assembly"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers must treat any error as
// fatal and refuse to start a run.
func (c *Config) Validate() error {
	if c.Paths.CacheDir == "" {
		return fmt.Errorf("config: paths.cache_dir is required")
	}

	if !chem.AlignMode(c.Build.AlignMode).IsValid() {
		return fmt.Errorf("config: build.align_mode %q is invalid; expected strict|relaxed|relaxed-stereo", c.Build.AlignMode)
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("config: build.workers must be ≥ 1, got %d", c.Build.Workers)
	}
	if c.Build.AlignTimeout <= 0 {
		return fmt.Errorf("config: build.align_timeout must be positive, got %s", c.Build.AlignTimeout)
	}
	if c.Build.SizeSlack < 0 {
		return fmt.Errorf("config: build.size_slack must be ≥ 0, got %d", c.Build.SizeSlack)
	}
	if c.Build.LocalPrefix == "" {
		return fmt.Errorf("config: build.local_prefix is required")
	}
	if c.Build.MaxModelsPerParent < 1 {
		return fmt.Errorf("config: build.max_models_per_parent must be ≥ 1, got %d", c.Build.MaxModelsPerParent)
	}

	if c.Assembly.MaxRFactor <= 0 {
		return fmt.Errorf("config: assembly.max_r_factor must be positive, got %g", c.Assembly.MaxRFactor)
	}
	if c.Assembly.PublicPrefix == "" {
		return fmt.Errorf("config: assembly.public_prefix is required")
	}
	if c.Assembly.PublicPrefix == c.Build.LocalPrefix {
		return fmt.Errorf("config: assembly.public_prefix must differ from build.local_prefix (%q)", c.Build.LocalPrefix)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required when database is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required when database is enabled")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required when database is enabled")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio is enabled")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio is enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
