package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Paths.CacheDir = "/var/lib/ccmodel"
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingCacheDir(t *testing.T) {
	cfg := validConfig()
	cfg.Paths.CacheDir = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_dir")
}

func TestValidate_BadAlignMode(t *testing.T) {
	cfg := validConfig()
	cfg.Build.AlignMode = "fuzzy"
	assert.Error(t, cfg.Validate())
}

func TestValidate_WorkersAndTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Build.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Build.AlignTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_PrefixCollision(t *testing.T) {
	cfg := validConfig()
	cfg.Build.LocalPrefix = "M"
	cfg.Assembly.PublicPrefix = "M"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public_prefix")
}

func TestValidate_OptionalSections(t *testing.T) {
	// Disabled infrastructure sections need no connection parameters.
	cfg := validConfig()
	cfg.Database = DatabaseConfig{}
	cfg.Redis = RedisConfig{}
	cfg.MinIO = MinIOConfig{}
	cfg.Kafka = KafkaConfig{}
	assert.NoError(t, cfg.Validate())

	cfg.Database.Enabled = true
	assert.Error(t, cfg.Validate())
}

func TestValidate_KafkaEnabledRequiresBrokers(t *testing.T) {
	cfg := validConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.Error(t, cfg.Validate())
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultAlignMode, cfg.Build.AlignMode)
	assert.Equal(t, DefaultMaxRFactor, cfg.Assembly.MaxRFactor)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Build.Workers = 32
	cfg.Build.LocalPrefix = "X"
	ApplyDefaults(cfg)

	assert.Equal(t, 32, cfg.Build.Workers)
	assert.Equal(t, "X", cfg.Build.LocalPrefix)
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
