package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/admi-n/solidity-vulnlab/src/config"
)

// syncBuffer 满足 zapcore.WriteSyncer
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInitializeConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &syncBuffer{}

	cfg := config.NewDefaultConfig().Logger
	cfg.Level = "debug"
	Initialize(cfg, out)
	GetLogger().Named("scanner").Info("Scan completed.")
	Sync()

	text := out.String()
	assert.Contains(t, text, "INFO")
	assert.Contains(t, text, palette["green"])
	assert.Contains(t, text, "vulnlab.scanner.")
	assert.Contains(t, text, "Scan completed.")
}

func TestInitializeJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &syncBuffer{}

	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "json-test"}, out)
	logger := GetLogger()
	logger.Debug("dropped")
	logger.Warn("Speed clamped.", zap.String("key", "value"))
	Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "json-test", entry["logger"])
	assert.Equal(t, "Speed clamped.", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestInitializeWritesLogFile(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	path := filepath.Join(t.TempDir(), "vulnlab.log")

	Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&bytes.Buffer{}))
	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestInitializeOnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	first, second := &syncBuffer{}, &syncBuffer{}

	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)
	GetLogger().Info("hello")

	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &syncBuffer{}

	Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, out)
	GetLogger().Debug("hidden")
	GetLogger().Info("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()

	assert.NotNil(t, GetLogger())
}

func TestUnknownColorIsPlain(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &syncBuffer{}

	cfg := config.NewDefaultConfig().Logger
	cfg.Colors.Info = "chartreuse"
	Initialize(cfg, out)
	GetLogger().Info("plain")

	text := out.String()
	assert.Contains(t, text, "INFO")
	assert.NotContains(t, text, colorReset)
}

func TestIgnorableSyncError(t *testing.T) {
	wrapped := &os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.EINVAL}

	assert.True(t, ignorableSyncError(wrapped))
	assert.True(t, ignorableSyncError(fmt.Errorf("tee: %w", syscall.ENOTTY)))
	assert.False(t, ignorableSyncError(syscall.ENOSPC))
}
