// Package config persists application settings as a JSON file. Missing
// keys fall back to defaults, so configs written by older versions keep
// loading after new fields appear.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
)

// EnvDataDir overrides the application data directory when set.
const EnvDataDir = "LYRICDISPLAY_DATA_DIR"

const appDirName = "lyricdisplay"

// Config holds every user-adjustable setting.
type Config struct {
	ComPort        string  `json:"com_port"`
	BaudRate       int     `json:"baud_rate"`
	AutoConnect    bool    `json:"auto_connect"`
	GlobalOffsetMs int     `json:"global_offset_ms"`
	FontSize       float64 `json:"font_size"`
	DisplayMode    string  `json:"display_mode"`
	Volume         float64 `json:"volume"`

	path string
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		BaudRate:    115200,
		AutoConnect: true,
		FontSize:    1.5,
		DisplayMode: "lyrics",
		Volume:      0.7,
	}
}

// DataDir returns the application data directory, creating it if needed.
// LYRICDISPLAY_DATA_DIR overrides the default under the user config dir.
func DataDir() (string, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating data dir: %w", err)
		}
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	return dir, nil
}

// DBPath returns the track library database location.
func DBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "library.db"), nil
}

// LibraryDir returns the directory imported audio and subtitle files are
// copied into, creating it if needed.
func LibraryDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	lib := filepath.Join(dir, "library")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		return "", fmt.Errorf("creating library dir: %w", err)
	}
	return lib, nil
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, merging file contents over defaults. A
// missing or unreadable file yields pure defaults rather than an error;
// settings are not worth refusing to start over.
func Load(path string) *Config {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Could not read config %s, using defaults: %v", path, err)
		}
		return cfg
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		logger.Warnf("Malformed config %s, using defaults: %v", path, err)
		return Default().withPath(path)
	}
	cfg.normalize()
	return cfg
}

// Save writes the config as pretty-printed JSON, creating the parent
// directory if needed.
func (c *Config) Save() error {
	c.normalize()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Path returns where the config is persisted.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) withPath(path string) *Config {
	c.path = path
	return c
}

// normalize clamps every field to its valid range.
func (c *Config) normalize() {
	if c.BaudRate <= 0 {
		c.BaudRate = 115200
	}
	if c.FontSize < 1.0 {
		c.FontSize = 1.0
	}
	if c.FontSize > 3.0 {
		c.FontSize = 3.0
	}
	if c.DisplayMode != "lyrics" && c.DisplayMode != "equalizer" {
		c.DisplayMode = "lyrics"
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	if c.Volume > 1 {
		c.Volume = 1
	}
}
