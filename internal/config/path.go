package config

// PathConfig holds the external binaries the pipeline shells out to.
type PathConfig struct {
	MySQL string `mapstructure:"mysql"`
}
