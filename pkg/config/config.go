// Package config loads geoview settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/geoview/pkg/geodesc"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for config files that are neither TOML nor YAML.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Defaults.
const (
	DefaultAddr           = "localhost:8090"
	DefaultLogLevel       = "info"
	DefaultEvalTimeout    = "5s"
	DefaultMaxConnections = 16
)

// Config holds the settings of a viewer process. Zero budgets are derived
// from the loaded geometry.
type Config struct {
	Geometry        string `toml:"geometry" yaml:"geometry"`
	Addr            string `toml:"addr" yaml:"addr"`
	SegmentCount    int    `toml:"segment_count" yaml:"segment_count"`
	MaxVisibleNodes int    `toml:"max_visible_nodes" yaml:"max_visible_nodes"`
	MaxVisibleFaces int    `toml:"max_visible_faces" yaml:"max_visible_faces"`
	DrawOptions     string `toml:"draw_options" yaml:"draw_options"`
	LogLevel        string `toml:"log_level" yaml:"log_level"`
	EvalTimeout     string `toml:"eval_timeout" yaml:"eval_timeout"`
	Watch           bool   `toml:"watch" yaml:"watch"`
	MaxConnections  int    `toml:"max_connections" yaml:"max_connections"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:           DefaultAddr,
		LogLevel:       DefaultLogLevel,
		EvalTimeout:    DefaultEvalTimeout,
		MaxConnections: DefaultMaxConnections,
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, or .yaml / .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext over the defaults and
// validates the result.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the duration and level syntax.
func (c *Config) Validate() error {
	var errs []error
	if c.SegmentCount < 0 {
		errs = append(errs, fmt.Errorf("segment_count must not be negative, got %d", c.SegmentCount))
	}
	if c.MaxVisibleNodes < 0 {
		errs = append(errs, fmt.Errorf("max_visible_nodes must not be negative, got %d", c.MaxVisibleNodes))
	}
	if c.MaxVisibleFaces < 0 {
		errs = append(errs, fmt.Errorf("max_visible_faces must not be negative, got %d", c.MaxVisibleFaces))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("max_connections must not be negative, got %d", c.MaxConnections))
	}
	if _, err := c.timeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Timeout returns the evaluation time limit, or the default when unset or
// malformed.
func (c *Config) Timeout() time.Duration {
	d, err := c.timeout()
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultEvalTimeout)
	}
	return d
}

func (c *Config) timeout() (time.Duration, error) {
	if c.EvalTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.EvalTimeout)
	if err != nil {
		return 0, fmt.Errorf("eval_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("eval_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// Level returns the log level, or info when unset or malformed.
func (c *Config) Level() slog.Level {
	l, err := c.level()
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Limits resolves the node and face budgets. A zero node budget is derived
// from the geometry's suggestion, clamped like the viewer default; a zero
// face budget is the node budget times geodesc.FacesPerNode.
func (c *Config) Limits(suggested int) (nodes, faces int) {
	nodes, faces = geodesc.DefaultLimits(suggested)
	if c.MaxVisibleNodes > 0 {
		nodes = c.MaxVisibleNodes
		faces = nodes * geodesc.FacesPerNode
	}
	if c.MaxVisibleFaces > 0 {
		faces = c.MaxVisibleFaces
	}
	return nodes, faces
}
