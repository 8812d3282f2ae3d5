package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	level, err = parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestNewRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewOrNopFallsBack(t *testing.T) {
	logger := NewOrNop("loud", false)
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestProductionOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "shuttle.log")
	logger, err := New(Config{Level: "warn", OutputPaths: []string{out}})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger.Component("shuttle").Warn("idle stop", Instance("abc"), Op("ping"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, sonic.Unmarshal(data, &line))
	assert.Equal(t, "idle stop", line["msg"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "shuttle", line["logger"])
	assert.Equal(t, ServiceName, line["service"])
	assert.Equal(t, "abc", line["instance"])
	assert.Equal(t, "ping", line["op"])
	assert.Contains(t, line, "ts")
	assert.Contains(t, line, "caller")
}

func TestDevelopmentOutputIsConsole(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dev.log")
	logger, err := New(Config{Level: "debug", Development: true, OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Debug("bound", Instance("xyz"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bound")
	assert.Contains(t, string(data), `"instance": "xyz"`)
	assert.NotEqual(t, byte('{'), data[0])
}
