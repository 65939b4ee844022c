package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the demo configuration. It is read from a YAML file and then
// overridden by PPA_* environment variables and command-line flags.
type Config struct {
	Backend string `yaml:"backend"`

	// Source picture size.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	Rotation int     `yaml:"rotation"`
	Scale    float64 `yaml:"scale"`
	MirrorX  bool    `yaml:"mirror_x"`
	MirrorY  bool    `yaml:"mirror_y"`

	// Overlay alpha of the scaled layer when blended onto the canvas.
	Alpha uint8 `yaml:"alpha"`

	Iterations  int  `yaml:"iterations"`
	MaxPending  int  `yaml:"max_pending"`
	NonBlocking bool `yaml:"non_blocking"`

	Output string `yaml:"output"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`

	// File enables a rotated JSON log file next to console output.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func defaultConfig() Config {
	return Config{
		Backend:    "sim",
		Width:      64,
		Height:     48,
		Rotation:   90,
		Scale:      1,
		Alpha:      0xC0,
		Iterations: 8,
		MaxPending: 4,
		Output:     "ppademo.png",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults. Unknown keys are rejected.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with PPA_* environment variables. Malformed
// numbers are reported, not ignored.
func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("PPA_BACKEND", &cfg.Backend)
	num("PPA_WIDTH", &cfg.Width)
	num("PPA_HEIGHT", &cfg.Height)
	num("PPA_ROTATION", &cfg.Rotation)
	if v := os.Getenv("PPA_SCALE"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PPA_SCALE: %w", err))
		} else {
			cfg.Scale = f
		}
	}
	num("PPA_ITERATIONS", &cfg.Iterations)
	num("PPA_MAX_PENDING", &cfg.MaxPending)
	flag("PPA_NON_BLOCKING", &cfg.NonBlocking)
	str("PPA_OUTPUT", &cfg.Output)
	str("PPA_LOG_LEVEL", &cfg.Log.Level)
	str("PPA_LOG_FILE", &cfg.Log.File)
	flag("PPA_LOG_DEVELOPMENT", &cfg.Log.Development)
	return errors.Join(errs...)
}

func (c *Config) validate() error {
	switch {
	case c.Backend == "":
		return errors.New("backend is required")
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("source size %dx%d must be positive", c.Width, c.Height)
	case c.Rotation%90 != 0 || c.Rotation < 0 || c.Rotation > 270:
		return fmt.Errorf("rotation %d must be one of 0, 90, 180, 270", c.Rotation)
	case c.Scale <= 0:
		return fmt.Errorf("scale %v must be positive", c.Scale)
	case c.Iterations < 1:
		return fmt.Errorf("iterations %d must be at least 1", c.Iterations)
	case c.MaxPending < 1:
		return fmt.Errorf("max_pending %d must be at least 1", c.MaxPending)
	case c.Output == "":
		return errors.New("output path is required")
	}
	return nil
}
