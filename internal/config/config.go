// Package config loads the visualizer settings from .env, an optional YAML
// file and KEYTRACE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vincentbai/keytrace/internal/layout"
)

const (
	DefaultAddress   = "127.0.0.1:8123"
	DefaultFrameRate = 60
	// DefaultSkipKeyCode is Tab, which moves focus between fields rather
	// than typing into one.
	DefaultSkipKeyCode = 9
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StorePebble = "pebble"
	StoreNone   = "none"
)

type Config struct {
	Address     string          `yaml:"address"`
	DataDir     string          `yaml:"data_dir"`
	Store       string          `yaml:"store"`
	SkipKeyCode int             `yaml:"skip_key_code"`
	FrameRate   int             `yaml:"frame_rate"`
	PaletteSeed int64           `yaml:"palette_seed"`
	Geometry    layout.Geometry `yaml:"geometry"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Address:     DefaultAddress,
		DataDir:     defaultDataDir(),
		Store:       StoreSQLite,
		SkipKeyCode: DefaultSkipKeyCode,
		FrameRate:   DefaultFrameRate,
		Geometry:    layout.DefaultGeometry(),
	}
}

// Load builds the configuration. A missing .env file is fine; a missing
// KEYTRACE_CONFIG file is not.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("KEYTRACE_CONFIG"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("KEYTRACE_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("KEYTRACE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KEYTRACE_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("KEYTRACE_TIMELINE_SECONDS"); v != "" {
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid KEYTRACE_TIMELINE_SECONDS %q: %w", v, err)
		}
		c.Geometry.TimelineDurationMillis = int64(seconds * 1000)
	}
	if v := os.Getenv("KEYTRACE_SKIP_KEY"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KEYTRACE_SKIP_KEY %q: %w", v, err)
		}
		c.SkipKeyCode = code
	}
	return nil
}

func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	switch c.Store {
	case StoreSQLite, StorePebble, StoreNone:
	default:
		return fmt.Errorf("unknown store %q (want %s, %s or %s)", c.Store, StoreSQLite, StorePebble, StoreNone)
	}
	if c.Store != StoreNone && c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", c.FrameRate)
	}
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("invalid geometry: %w", err)
	}
	return nil
}

// StorePath is where the selected store keeps its files.
func (c Config) StorePath() string {
	switch c.Store {
	case StorePebble:
		return filepath.Join(c.DataDir, "slots.pebble")
	default:
		return filepath.Join(c.DataDir, "slots.db")
	}
}

// app data dir: platform-specific
func defaultDataDir() string {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "KeyTrace")
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "KeyTrace")
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "KeyTrace")
	}
}
