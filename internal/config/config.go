// Package config handles loading pstexplorer configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the pstexplorer configuration.
type Config struct {
	Output OutputConfig `toml:"output"`
	List   ListConfig   `toml:"list"`
	Export ExportConfig `toml:"export"`
	Log    LogConfig    `toml:"log"`
	Browse BrowseConfig `toml:"browse"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// OutputConfig holds defaults for list and search output.
type OutputConfig struct {
	Format string `toml:"format"` // table, csv, tsv or json
}

// ListConfig holds list and search defaults.
type ListConfig struct {
	Limit int `toml:"limit"` // negative means unbounded
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Dir string `toml:"dir"` // directory for the default <stem>.db output
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn or error
}

// BrowseConfig holds browse screen configuration.
type BrowseConfig struct {
	PageSize int `toml:"page_size"` // 0 sizes the list to the terminal
}

// DefaultHome returns the default pstexplorer home directory.
// Respects PSTEXPLORER_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("PSTEXPLORER_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pstexplorer"
	}
	return filepath.Join(home, ".pstexplorer")
}

// Default returns the configuration used when no file is present.
func Default(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Output:  OutputConfig{Format: "table"},
		List:    ListConfig{Limit: -1},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the configuration from the specified file.
// If path is empty, uses config.toml in homeDir; if homeDir is empty, uses
// DefaultHome(). A missing file yields the defaults; an explicit path that
// does not exist is an error.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	} else {
		homeDir = expandPath(homeDir)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}
	path = expandPath(path)

	cfg := Default(homeDir)
	cfg.ConfigPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.Export.Dir = expandPath(cfg.Export.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges that TOML decoding cannot express.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Browse.PageSize < 0 {
		return fmt.Errorf("browse.page_size must not be negative, got %d", c.Browse.PageSize)
	}
	return nil
}

// LogLevel parses Log.Level. The empty string is INFO.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
