package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kasir/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestSinkWritesJSONAtConfiguredLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kasir.log")
	sink, err := logging.NewSink(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	logger := sink.Attach(zap.NewNop()).Named("posapi")
	logger.Debug("hidden")
	logger.Info("visible", zap.String("path", "/auth/login/"))

	sink.SetDebug(true)
	logger.Debug("now visible")
	require.NoError(t, logger.Sync())

	entries := readLines(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "visible", entries[0]["msg"])
	assert.Equal(t, "posapi", entries[0]["logger"])
	assert.Equal(t, "/auth/login/", entries[0]["path"])
	assert.EqualValues(t, os.Getpid(), entries[0]["pid"])
	assert.Equal(t, "now visible", entries[1]["msg"])
}

func TestSinkRedirect(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	sink, err := logging.NewSink(first, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	logger := sink.Attach(zap.NewNop())

	logger.Info("one")
	require.NoError(t, sink.Redirect(second))
	logger.Info("two")
	assert.Equal(t, second, sink.Path())

	assert.Len(t, readLines(t, first), 1)
	assert.Len(t, readLines(t, second), 1)
}

func TestSinkWithoutFileDiscards(t *testing.T) {
	sink, err := logging.NewSink("", true)
	require.NoError(t, err)

	logger := sink.Attach(zap.NewNop())
	logger.Info("dropped")
	assert.NoError(t, logger.Sync())
	assert.Empty(t, sink.Path())
	assert.NoError(t, sink.Close())
}
