package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel("Warning", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, ParseLevel("", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel("verbose", slog.LevelWarn))
}

func TestFromSettingsEnvOverride(t *testing.T) {
	t.Setenv(EnvLevel, "")
	assert.Equal(t, slog.LevelWarn, FromSettings("warn", "text").Level)

	t.Setenv(EnvLevel, "debug")
	assert.Equal(t, slog.LevelDebug, FromSettings("warn", "text").Level)
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	NewLogger(Config{Level: slog.LevelInfo, Output: &buf}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	NewLogger(Config{Level: slog.LevelWarn, Output: &buf}).Info("hidden")
	assert.Empty(t, buf.String())
}
