package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/geoview/pkg/config"
	"github.com/chazu/geoview/pkg/engine"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.geo")
	require.NoError(t, os.WriteFile(path, []byte(`(top (volume "box" (box :dx 1 :dy 1 :dz 1)))`), 0o644))

	src := fileSource(engine.NewEngine(engine.WithLogger(quietLogger())), path)
	mgr, err := src()
	require.NoError(t, err)
	assert.NotNil(t, mgr.GetVolume("box"))

	require.NoError(t, os.WriteFile(path, []byte(`(top (volume "box"`), 0o644))
	_, err = src()
	assert.ErrorContains(t, err, path)

	_, err = fileSource(engine.NewEngine(), filepath.Join(dir, "missing.geo"))()
	assert.Error(t, err)
}

func TestRunWithoutGeometry(t *testing.T) {
	assert.Error(t, run(config.Default(), "", quietLogger()))
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.geo")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	changed := make(chan struct{}, 10)
	w, err := watchFile(path, quietLogger(), func() { changed <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.geo"), []byte("b"), 0o644))
	select {
	case <-changed:
		t.Fatal("change reported for another file")
	case <-time.After(3 * settleDelay):
	}

	require.NoError(t, os.WriteFile(path, []byte("c"), 0o644))
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
