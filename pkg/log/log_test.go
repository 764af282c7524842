package log

import (
	"os"
	"path/filepath"
	"testing"

	"drbackup/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	logger := New(config.LogConfig{Level: "debug", Path: "stdout"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = New(config.LogConfig{Level: "nonsense", Path: "stdout"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drbackup.log")

	logger := New(config.LogConfig{Level: "info", Path: path, MaxSize: 1})
	componentLogger := Component(logger, "orchestrator")
	componentLogger.Info().Str("project", "shop").Msg("backup started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"orchestrator"`)
	assert.Contains(t, string(data), `"project":"shop"`)
	assert.Contains(t, string(data), `"service":"drbackup"`)
}
