package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	logsDir := filepath.Join(filepath.Dir(exe), "logs")

	path, err := LogFilePath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(logsDir, DefaultLogFile), path)

	path, err = LogFilePath("relay-prod.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(logsDir, "relay-prod.log"), path)

	abs := filepath.Join(t.TempDir(), "relay.log")
	path, err = LogFilePath(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestNormalizeLogLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"debug", "debug", true},
		{" INFO ", "info", true},
		{"Warning", "warn", true},
		{"error", "error", true},
		{"verbose", "info", false},
		{"", "info", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeLogLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, ok, tt.in)
	}
}

func TestLogOutputs(t *testing.T) {
	toFile, toConsole := logOutputs([]string{"file"})
	assert.True(t, toFile)
	assert.False(t, toConsole)

	toFile, toConsole = logOutputs([]string{" Console "})
	assert.False(t, toFile)
	assert.True(t, toConsole)

	toFile, toConsole = logOutputs(nil)
	assert.False(t, toFile)
	assert.True(t, toConsole)
}

func TestInitLogger_FileOutput(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Logging.Output = []string{"file"}
	cfg.Logging.File = filepath.Join(t.TempDir(), "nested", "relay.log")
	cfg.Logging.Level = "debug"

	logger := InitLogger(cfg)
	require.NotNil(t, logger)

	assert.DirExists(t, filepath.Dir(cfg.Logging.File))
	assert.True(t, logger == GetLogger())
}
