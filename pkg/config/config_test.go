package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultAddr, c.Addr)
	assert.Equal(t, 5*time.Second, c.Timeout())
	assert.Equal(t, slog.LevelInfo, c.Level())
	assert.NoError(t, c.Validate())
}

func TestParseTOML(t *testing.T) {
	src := `
geometry = "detector.geo"
addr = ":9000"
segment_count = 40
max_visible_nodes = 2500
draw_options = "ogl"
log_level = "debug"
eval_timeout = "250ms"
watch = true
`
	c, err := Parse([]byte(src), ".toml")
	require.NoError(t, err)
	assert.Equal(t, "detector.geo", c.Geometry)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 40, c.SegmentCount)
	assert.Equal(t, 2500, c.MaxVisibleNodes)
	assert.Equal(t, "ogl", c.DrawOptions)
	assert.Equal(t, slog.LevelDebug, c.Level())
	assert.Equal(t, 250*time.Millisecond, c.Timeout())
	assert.True(t, c.Watch)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultMaxConnections, c.MaxConnections)
}

func TestParseYAML(t *testing.T) {
	src := `
geometry: detector.geo
max_visible_faces: 90000
log_level: warn
`
	for _, ext := range []string{".yaml", ".yml", "YAML"} {
		t.Run(ext, func(t *testing.T) {
			c, err := Parse([]byte(src), ext)
			require.NoError(t, err)
			assert.Equal(t, "detector.geo", c.Geometry)
			assert.Equal(t, 90000, c.MaxVisibleFaces)
			assert.Equal(t, slog.LevelWarn, c.Level())
			assert.Equal(t, DefaultAddr, c.Addr)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ext  string
	}{
		{"unknown format", `a = 1`, ".ini"},
		{"bad toml", `geometry = `, ".toml"},
		{"bad yaml", "geometry: [unclosed", ".yaml"},
		{"negative segments", `segment_count = -1`, ".toml"},
		{"negative nodes", `max_visible_nodes = -5`, ".toml"},
		{"negative faces", `max_visible_faces: -5`, ".yaml"},
		{"bad timeout", `eval_timeout = "soon"`, ".toml"},
		{"negative timeout", `eval_timeout = "-1s"`, ".toml"},
		{"bad level", `log_level = "loud"`, ".toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), tt.ext)
			assert.Error(t, err)
		})
	}

	_, err := Parse(nil, ".ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geoview.toml")
	require.NoError(t, os.WriteFile(path, []byte(`addr = ":7000"`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Addr)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name      string
		nodes     int
		faces     int
		suggested int
		wantNodes int
		wantFaces int
	}{
		{"derived, low suggestion clamps up", 0, 0, 10, 1000, 100000},
		{"derived, high suggestion clamps down", 0, 0, 100000, 5000, 500000},
		{"derived, in range", 0, 0, 2000, 2000, 200000},
		{"explicit nodes", 300, 0, 2000, 300, 30000},
		{"explicit faces", 0, 1234, 2000, 2000, 1234},
		{"explicit both", 7, 8, 2000, 7, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.MaxVisibleNodes = tt.nodes
			c.MaxVisibleFaces = tt.faces
			n, f := c.Limits(tt.suggested)
			assert.Equal(t, tt.wantNodes, n)
			assert.Equal(t, tt.wantFaces, f)
		})
	}
}

func TestMalformedFallbacks(t *testing.T) {
	c := &Config{EvalTimeout: "nope", LogLevel: "nope"}
	assert.Equal(t, 5*time.Second, c.Timeout())
	assert.Equal(t, slog.LevelInfo, c.Level())
}
