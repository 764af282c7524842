package log

import (
	"io"
	"os"
	"strings"

	"drbackup/internal/config"
	"drbackup/pkg/version"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a zerolog.Logger writing to stdout, stderr or a rotated file
// depending on cfg.Path. Every line carries the service name and version.
func New(cfg config.LogConfig) zerolog.Logger {
	var writer io.Writer
	switch strings.ToLower(cfg.Path) {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(writer).With().Timestamp().
		Str("service", version.Name).
		Str("version", version.Version)
	if host, err := os.Hostname(); err == nil {
		ctx = ctx.Str("host", host)
	}

	return ctx.Logger().Level(level)
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
