package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultPrefix = "cod"

	DefaultAlignMode          = "relaxed-stereo"
	DefaultWorkers            = 4
	DefaultAlignTimeout       = 60 * time.Second
	DefaultSizeSlack          = 2
	DefaultLocalPrefix        = "Q"
	DefaultMaxModelsPerParent = 300

	DefaultMaxRFactor   = 10.0
	DefaultPublicPrefix = "M"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "ccmodel"
	DefaultDBMaxConns = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisTTL       = 14 * 24 * time.Hour
	DefaultRedisKeyPrefix = "ccmodel:align:"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "ccmodel-releases"

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "ccmodel.releases"

	DefaultMetricsListenAddr = ":9108"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must run after
// unmarshalling and before Validate so optional-but-defaulted fields are
// never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Paths ─────────────────────────────────────────────────────────────────
	if cfg.Paths.Prefix == "" {
		cfg.Paths.Prefix = DefaultPrefix
	}

	// ── Build ─────────────────────────────────────────────────────────────────
	if cfg.Build.AlignMode == "" {
		cfg.Build.AlignMode = DefaultAlignMode
	}
	if cfg.Build.Workers == 0 {
		cfg.Build.Workers = DefaultWorkers
	}
	if cfg.Build.AlignTimeout == 0 {
		cfg.Build.AlignTimeout = DefaultAlignTimeout
	}
	if cfg.Build.SizeSlack == 0 {
		cfg.Build.SizeSlack = DefaultSizeSlack
	}
	if cfg.Build.LocalPrefix == "" {
		cfg.Build.LocalPrefix = DefaultLocalPrefix
	}
	if cfg.Build.MaxModelsPerParent == 0 {
		cfg.Build.MaxModelsPerParent = DefaultMaxModelsPerParent
	}

	// ── Assembly ──────────────────────────────────────────────────────────────
	if cfg.Assembly.MaxRFactor == 0 {
		cfg.Assembly.MaxRFactor = DefaultMaxRFactor
	}
	if cfg.Assembly.PublicPrefix == "" {
		cfg.Assembly.PublicPrefix = DefaultPublicPrefix
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = DefaultMetricsListenAddr
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
