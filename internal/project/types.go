package project

import (
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Strategy selects the archive builder used for a project.
type Strategy string

func (s Strategy) String() string { return string(s) }

const (
	StrategyLaravelApp Strategy = "laravel-app"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ErrInvalidConfig marks a project configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid project config")

var validate = validator.New()

// A project name becomes a directory, an archive name and a storage key
// segment, so it is limited to characters that are safe in all three.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,62}$`)

func init() {
	validate.RegisterValidation("projectname", func(fl validator.FieldLevel) bool {
		return nameRegex.MatchString(fl.Field().String())
	})
}

type IncludeConfig struct {
	Database bool     `mapstructure:"database" json:"database"`
	Files    []string `mapstructure:"files" json:"files"`
	Config   bool     `mapstructure:"config" json:"config"`
}

type RetentionConfig struct {
	HotDays            int  `mapstructure:"hot_days" json:"hot_days" validate:"gte=0"`
	ArchiveYears       int  `mapstructure:"archive_years" json:"archive_years" validate:"gte=0"`
	AutoCleanupArchive bool `mapstructure:"auto_cleanup_archive" json:"auto_cleanup_archive"`
}

type ComplianceConfig struct {
	Required       bool   `mapstructure:"required" json:"required"`
	Classification string `mapstructure:"classification" json:"classification"`
}

type EncryptionConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Password string `mapstructure:"password" json:"-"`
}

// Config is the backup configuration of a single project.
type Config struct {
	Name         string           `mapstructure:"name" json:"name" validate:"required,projectname"`
	Type         Strategy         `mapstructure:"type" json:"type" validate:"required"`
	Enabled      *bool            `mapstructure:"enabled" json:"enabled,omitempty"`
	Priority     Priority         `mapstructure:"priority" json:"priority" validate:"omitempty,oneof=critical high medium low"`
	RootPath     string           `mapstructure:"root_path" json:"root_path" validate:"required"`
	DatabaseName string           `mapstructure:"database_name" json:"database_name,omitempty"`
	Include      IncludeConfig    `mapstructure:"include" json:"include"`
	Retention    RetentionConfig  `mapstructure:"retention" json:"retention"`
	Compliance   ComplianceConfig `mapstructure:"compliance" json:"compliance"`
	Encryption   EncryptionConfig `mapstructure:"encryption" json:"encryption"`
}

// IsEnabled reports whether the project takes part in runs. Projects without
// an explicit flag are enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// EncryptionActive reports whether archives for this project are encrypted.
// Encryption enabled without a password degrades to a plain archive.
func (c *Config) EncryptionActive() bool {
	return c.Encryption.Enabled && c.Encryption.Password != ""
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Mark(errors.Wrapf(err, "project %q", c.Name), ErrInvalidConfig)
	}
	return nil
}

// Enabled filters out disabled projects, preserving order.
func Enabled(configs []Config) []Config {
	out := make([]Config, 0, len(configs))
	for _, c := range configs {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}
