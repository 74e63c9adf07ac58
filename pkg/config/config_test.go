package config

import (
	"os"
	"path/filepath"
	"testing"

	"stones/pkg/dberrors"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, DefaultFlushThreshold, cfg.Memtable.FlushThreshold)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, found, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
http-server:
  port: 9090
db:
  memtable:
    flush_threshold: 2
  persistence:
    path: /var/lib/stones
    index_interval: 4
`)

	cfg, found, err := Load(path)
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, "debug", cfg.Logger.Level)
	require.True(t, cfg.Logger.JSON)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2, cfg.Memtable.FlushThreshold)
	require.Equal(t, "/var/lib/stones", cfg.Persistence.RootPath)
	require.Equal(t, 4, cfg.Persistence.IndexInterval)

	// untouched keys keep their defaults
	require.Equal(t, Default().Server.ShutdownTimeout, cfg.Server.ShutdownTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero threshold", body: "db:\n  memtable:\n    flush_threshold: 0\n"},
		{name: "bad port", body: "http-server:\n  port: 70000\n"},
		{name: "bad level", body: "logger:\n  level: chatty\n"},
		{name: "empty path", body: "db:\n  persistence:\n    path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found, err := Load(writeConfig(t, tt.body))
			require.True(t, found)
			require.ErrorIs(t, err, dberrors.ErrInvalidArgument)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, found, err := Load(writeConfig(t, "db: [unterminated\n"))
	require.True(t, found)
	require.Error(t, err)
	require.NotErrorIs(t, err, dberrors.ErrInvalidArgument)
}
