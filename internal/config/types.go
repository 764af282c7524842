package config

import "time"

// LogConfig represents the logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type DumpConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Preflight bool          `mapstructure:"preflight"`
}

type ArchiveConfig struct {
	CompressionLevel int `mapstructure:"compression_level" validate:"gte=-2,lte=9"`
}

// DiskConfig describes one storage tier. Root is a directory for the local
// driver and a key prefix for s3.
type DiskConfig struct {
	Driver string   `mapstructure:"driver" validate:"oneof=local s3"`
	Root   string   `mapstructure:"root"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type DisksConfig struct {
	Local   DiskConfig `mapstructure:"local"`
	Offsite DiskConfig `mapstructure:"offsite"`
}

type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver  string `mapstructure:"driver" validate:"oneof=badger postgres"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

type HealthConfig struct {
	MaxAgeHours float64 `mapstructure:"max_age_hours" validate:"gt=0"`
	// WorkerURL is asked for health when a running worker holds the record
	// store. Empty means the worker's own metrics address.
	WorkerURL string `mapstructure:"worker_url"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TemporalConfig only carries worker settings; the server address and
// namespace come from the standard TEMPORAL_* environment.
type TemporalConfig struct {
	Queue           string        `mapstructure:"queue"`
	ActivityTimeout time.Duration `mapstructure:"activity_timeout"`
}
