package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"drbackup/internal/project"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config represents the configuration shared by the CLI and the worker
type Config struct {
	TempDir  string           `mapstructure:"temp_dir" validate:"required"`
	DataDir  string           `mapstructure:"data_dir"`
	Log      LogConfig        `mapstructure:"log"`
	Path     PathConfig       `mapstructure:"path"`
	Dump     DumpConfig       `mapstructure:"dump"`
	Archive  ArchiveConfig    `mapstructure:"archive"`
	Disks    DisksConfig      `mapstructure:"disks"`
	Breaker  BreakerConfig    `mapstructure:"breaker"`
	Store    StoreConfig      `mapstructure:"store"`
	Health   HealthConfig     `mapstructure:"health"`
	Metrics  MetricsConfig    `mapstructure:"metrics"`
	Temporal TemporalConfig   `mapstructure:"temporal"`
	Projects []project.Config `mapstructure:"projects" validate:"-"`
}

// NewConfig loads configuration from file and environment variables.
// configPath: path to the config file (e.g., "config.yaml"). If empty, looks for "config.yaml" in current directory
func NewConfig(ctx context.Context, configPath string) (*Config, error) {
	config := new(Config)
	v := viper.New()

	v.SetDefault("temp_dir", "/tmp/drbackup")
	v.SetDefault("data_dir", "/var/lib/drbackup")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("path.mysql", "mysqldump")
	v.SetDefault("dump.timeout", "30m")
	v.SetDefault("dump.preflight", true)
	v.SetDefault("archive.compression_level", 6)

	v.SetDefault("disks.local.driver", "local")
	v.SetDefault("disks.local.root", "/var/backups/drbackup")
	v.SetDefault("disks.offsite.driver", "s3")
	v.SetDefault("disks.offsite.root", "")
	v.SetDefault("disks.offsite.s3.region", "us-east-1")
	v.SetDefault("disks.offsite.s3.bucket", "")
	v.SetDefault("disks.offsite.s3.endpoint", "")
	v.SetDefault("disks.offsite.s3.access_key_id", "")
	v.SetDefault("disks.offsite.s3.secret_access_key", "")

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_failures", 3)
	v.SetDefault("breaker.timeout", "5m")

	v.SetDefault("store.driver", "badger")
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.migrate", true)

	v.SetDefault("health.max_age_hours", 25)
	v.SetDefault("health.worker_url", "")
	v.SetDefault("metrics.addr", ":9102")

	v.SetDefault("temporal.queue", "drbackup")
	v.SetDefault("temporal.activity_timeout", "2h")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.Store.Path == "" {
		config.Store.Path = config.DataDir + "/records"
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
