package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"loud":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	cfg := DefaultConfig()
	cfg.LogFile = path
	cfg.Level = "debug"

	l, err := New(cfg)
	require.NoError(t, err)

	l.WithOperation("buy").Info("bundle submitted", zap.String("mint", "abc"))
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"correlation_id"`)
	assert.Contains(t, string(raw), `"operation":"buy"`)
	assert.Contains(t, string(raw), `"mint":"abc"`)
}

func TestNew_ConsoleOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToFile = false
	cfg.LogFile = filepath.Join(t.TempDir(), "never.log")

	l, err := New(cfg)
	require.NoError(t, err)
	l.Debug("suppressed at info")
	require.NoError(t, l.Close())

	_, err = os.Stat(cfg.LogFile)
	assert.True(t, os.IsNotExist(err))
}

func TestWithOperation_UniqueCorrelation(t *testing.T) {
	core, logs := newObserved()
	base := zap.New(core)

	WithOperation(base, "sell").Info("a")
	WithOperation(base, "sell").Info("b")

	entries := logs()
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0]["correlation_id"], entries[1]["correlation_id"])
}
