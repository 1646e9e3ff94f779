package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/pkg/logging"
)

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "debug",
			Format: "json",
			Output: path,
			Fields: map[string]any{"component": "widget"},
		})
		logger.Info().Msg("record loaded")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "record loaded")
		assert.Contains(t, string(content), `"component":"widget"`)
	})

	t.Run("console format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:   "info",
			Format:  "console",
			Output:  path,
			NoColor: true,
		})
		logger.Info().Str("field", "rate").Msg("autosave")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "autosave")
		assert.Contains(t, string(content), "INF")
	})

	t.Run("level filtering", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "warn", Format: "json", Output: path})
		logger.Info().Msg("hidden")
		logger.Warn().Msg("shown")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "hidden")
		assert.Contains(t, string(content), "shown")
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
		_ = logging.NewLoggerFromConfig(nil)
	})
}

func TestConfigureFromEnv(t *testing.T) {
	previous := *logging.Default()
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(previous)
		zerolog.SetGlobalLevel(originalLevel)
	})

	path := filepath.Join(t.TempDir(), "env.log")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", path)
	t.Setenv("LOG_FIELDS", "service=recordsync, region = eu ,broken")

	logging.ConfigureFromEnv()
	logging.Info().Msg("hidden")
	logging.Warn().Msg("bridge slow")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "bridge slow")
	assert.Contains(t, string(content), `"service":"recordsync"`)
	assert.Contains(t, string(content), `"region":"eu"`)
	assert.NotContains(t, string(content), "broken")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	ctx := logging.WithLogger(context.Background(), &logger)
	ctx = logging.WithSession(ctx, "s-1")
	ctx = logging.WithIdentity(ctx, "6443")
	ctx = logging.WithRequestID(ctx, "req-9")

	logging.FromContext(ctx).Info().Msg("boot")

	out := buf.String()
	assert.Contains(t, out, `"session_id":"s-1"`)
	assert.Contains(t, out, `"identity":"6443"`)
	assert.Contains(t, out, `"request_id":"req-9"`)
	assert.Equal(t, "req-9", logging.RequestID(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Same(t, logging.Default(), logging.FromContext(nil))
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := logging.CaptureLoggingForTest(t)
	logging.Warn().Str("field", "area").Msg("autosave failed")

	assert.True(t, tl.Contains("autosave failed"))
	assert.Len(t, tl.Lines(), 1)
}
