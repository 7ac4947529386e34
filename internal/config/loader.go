// Package config provides configuration loading, defaults, and validation
// for the curation engine.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "CCM"

// newViper builds a pre-configured Viper instance with the engine's standard
// settings: YAML file type, CCM_ env prefix, automatic env binding, and a key
// replacer that maps "." → "_" so that nested keys like "build.align_mode"
// resolve to "CCM_BUILD_ALIGN_MODE".
// configKeys lists every nested configuration key.  Viper's Unmarshal only
// sees keys it already knows about, so environment-only loading must bind
// each one explicitly.
var configKeys = []string{
	"paths.cache_dir", "paths.prefix",
	"build.align_mode", "build.workers", "build.align_timeout",
	"build.strict_size", "build.size_slack", "build.local_prefix",
	"build.max_models_per_parent", "build.stop_sentinel",
	"assembly.max_r_factor", "assembly.public_prefix",
	"assembly.suppress_duplicates", "assembly.canonical_supremacy",
	"database.enabled", "database.host", "database.port", "database.user",
	"database.password", "database.db_name", "database.ssl_mode",
	"database.max_conns", "database.conn_max_lifetime", "database.migration_path",
	"redis.enabled", "redis.addr", "redis.password", "redis.db",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"redis.default_ttl", "redis.key_prefix",
	"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key",
	"minio.bucket", "minio.use_ssl",
	"kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.write_timeout",
	"metrics.enabled", "metrics.listen_addr",
	"log.level", "log.format", "log.output_paths",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges any CCM_* environment
// variable overrides, applies engine defaults for unset fields, and validates
// the result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CCM_* environment variables, with
// no config file required.  This is the loading strategy used when the CLI is
// invoked without --config.
//
// Environment variable naming convention:
//
//	CCM_<SECTION>_<FIELD>   e.g.  CCM_PATHS_CACHE_DIR, CCM_BUILD_WORKERS
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// Intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
