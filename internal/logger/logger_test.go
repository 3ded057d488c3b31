package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	closeFn, err := Init(Options{})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	require.False(t, L.Enabled(t.Context(), slog.LevelError))
	require.False(t, Discard().Enabled(t.Context(), slog.LevelError))
}

func TestInit_DisabledAfterEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slab.log")
	closeFn, err := Init(Options{Enabled: true, Path: path})
	require.NoError(t, err)
	require.NoError(t, closeFn())

	closeFn, err = Init(Options{})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	L.Error("dropped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "slab.log")
	closeFn, err := Init(Options{Enabled: true, Path: path, Level: slog.LevelDebug})
	require.NoError(t, err)
	t.Cleanup(func() { L = Discard() })

	L.Debug("grow", "type", "Node", "chunks", 2)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=grow")
	require.Contains(t, string(data), "type=Node")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo, true)
	l.Debug("hidden")
	l.Info("sweep", "reclaimed", 3)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"reclaimed":3`)
}
