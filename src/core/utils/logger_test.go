package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"medrelay-server-go/src/configs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "WARN")

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn", map[string]interface{}{"k": "v"})
	logger.WithTag("voice").Error("error")

	var entries []LogEntry
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry LogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, WarnLevel, entries[0].Level)
	assert.Equal(t, map[string]interface{}{"k": "v"}, entries[0].Fields)
	assert.Equal(t, ErrorLevel, entries[1].Level)
	assert.Equal(t, "voice", entries[1].Tag)
}

func TestNewLoggerWritesFile(t *testing.T) {
	config := &configs.Config{}
	config.Log.LogDir = filepath.Join(t.TempDir(), "nested")
	config.Log.LogFile = "test.log"
	config.Log.LogLevel = "debug"

	logger, err := NewLogger(config)
	require.NoError(t, err)
	logger.console = &bytes.Buffer{}

	logger.Debug("写入文件")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(config.Log.LogDir, config.Log.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入文件")
}
