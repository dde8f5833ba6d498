package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Setup
// ============================================================================

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	cfg := Config{
		Level:         "info",
		Format:        "json",
		FilePath:      path,
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("request served", "path", "/api/v1/search/articles", "status", 200)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "request served", entry["msg"])
	assert.Equal(t, "/api/v1/search/articles", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestSetup_TextFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	cfg := Config{
		Level:         "info",
		Format:        "text",
		FilePath:      path,
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("starting up")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"starting up\"")

	var entry map[string]interface{}
	assert.Error(t, json.Unmarshal(data, &entry), "text format should not be JSON")
}

func TestSetup_LevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	cfg := Config{
		Level:         "info",
		FilePath:      path,
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Debug("should be dropped")
	logger.Info("should be kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be dropped")
	assert.Contains(t, string(data), "should be kept")
}

func TestSetup_NoFilePathLogsToStderrOnly(t *testing.T) {
	cfg := Config{Level: "info"}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, logger)
}

func TestSetup_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "api.log")
	cfg := Config{Level: "info", FilePath: path, MaxSizeMB: 1, MaxFiles: 2}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("hello")
	cleanup()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.in))
		})
	}
}

// ============================================================================
// RotatingWriter
// ============================================================================

func TestRotatingWriter_RotatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.log")

	w, err := NewRotatingWriter(path, 1, 3) // 1MB max
	require.NoError(t, err)
	defer w.Close()

	// Two writes that together exceed 1MB force one rotation.
	chunk := strings.Repeat("x", 600*1024)
	_, err = w.Write([]byte(chunk))
	require.NoError(t, err)
	_, err = w.Write([]byte(chunk))
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "current log should exist after rotation")
	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated log should exist")
}

func TestRotatingWriter_KeepsAtMostMaxFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	chunk := strings.Repeat("y", 700*1024)
	for i := 0; i < 5; i++ {
		_, err = w.Write([]byte(chunk))
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 2, "rotation should cap the number of kept files")
}

func TestRotatingWriter_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	_, err = w.Write([]byte("appended\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nappended\n", string(data))
}

// ============================================================================
// Viewer
// ============================================================================

func writeLogLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestViewer_Tail_ReturnsLastN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"time":"2026-07-01T10:00:0%dZ","level":"INFO","msg":"entry %d"}`, i%10, i))
	}
	writeLogLines(t, path, lines...)

	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)
	entries, err := v.Tail(path, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 7", entries[0].Msg)
	assert.Equal(t, "entry 9", entries[2].Msg)
}

func TestViewer_Tail_LevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	writeLogLines(t, path,
		`{"time":"2026-07-01T10:00:00Z","level":"DEBUG","msg":"noise"}`,
		`{"time":"2026-07-01T10:00:01Z","level":"ERROR","msg":"boom"}`,
	)

	v := NewViewer(ViewerConfig{Level: "error", NoColor: true}, os.Stdout)
	entries, err := v.Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Msg)
}

func TestViewer_Tail_PatternFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	writeLogLines(t, path,
		`{"time":"2026-07-01T10:00:00Z","level":"INFO","msg":"search served","index":"articles"}`,
		`{"time":"2026-07-01T10:00:01Z","level":"INFO","msg":"ingest done","index":"articles"}`,
	)

	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`ingest`), NoColor: true}, os.Stdout)
	entries, err := v.Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ingest done", entries[0].Msg)
}

func TestViewer_ParseLine_InvalidJSONKeptRaw(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)
	entry := v.parseLine("not json at all")

	assert.False(t, entry.IsValid)
	assert.Equal(t, "not json at all", entry.Raw)
	assert.Equal(t, "not json at all", v.FormatEntry(entry))
}

func TestViewer_FormatEntry_IncludesAttrs(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)
	entry := v.parseLine(`{"time":"2026-07-01T10:00:00Z","level":"INFO","msg":"served","status":200}`)

	formatted := v.FormatEntry(entry)
	assert.Contains(t, formatted, "INFO")
	assert.Contains(t, formatted, "served")
	assert.Contains(t, formatted, "status=200")
}

// ============================================================================
// Paths
// ============================================================================

func TestFindLogFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "some.log")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	found, err := FindLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindLogFile_ExplicitMissingFails(t *testing.T) {
	_, err := FindLogFile(filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file not found")
}

func TestDefaultLogPath_UnderLogDir(t *testing.T) {
	assert.Equal(t, filepath.Join(DefaultLogDir(), "api.log"), DefaultLogPath())
}
