package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Level: "warn"})

	l.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	l.Warn().Str("k", "v").Msg("loud")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "loud", entry["message"])
	assert.Equal(t, "v", entry["k"])
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "console.log")
	require.NoError(t, Init(Config{Level: "debug", File: path}))
	assert.True(t, Initialized())

	l := Component("api")
	l.Debug().Msg("hello file")
	require.NoError(t, Close())
	assert.False(t, Initialized())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello file")
	assert.Contains(t, string(content), `"component":"api"`)
}

func TestInitWithoutFileDiscards(t *testing.T) {
	defer func() { _ = Close() }()
	require.NoError(t, Init(Config{Level: "info"}))
	l := Get()
	l.Info().Msg("nowhere")
}

func TestInitInvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := Init(Config{File: filepath.Join(blocker, "sub", "x.log")})
	assert.Error(t, err)
}
