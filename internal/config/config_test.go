package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("PSTEXPLORER_HOME", tmpDir)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default(tmpDir)
	want.ConfigPath = filepath.Join(tmpDir, "config.toml")
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.List.Limit >= 0 {
		t.Errorf("default List.Limit = %d, want unbounded", cfg.List.Limit)
	}
}

func TestLoadFromHome(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("PSTEXPLORER_HOME", tmpDir)
	writeConfig(t, tmpDir, `
[output]
format = "json"

[list]
limit = 25

[export]
dir = "/tmp/exports"

[log]
level = "debug"

[browse]
page_size = 15
`)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q", cfg.Output.Format)
	}
	if cfg.List.Limit != 25 {
		t.Errorf("List.Limit = %d", cfg.List.Limit)
	}
	if cfg.Export.Dir != "/tmp/exports" {
		t.Errorf("Export.Dir = %q", cfg.Export.Dir)
	}
	if cfg.Browse.PageSize != 15 {
		t.Errorf("Browse.PageSize = %d", cfg.Browse.PageSize)
	}
	lvl, err := cfg.LogLevel()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, %v", lvl, err)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "[output]\nformat = \"csv\"\n")

	cfg, err := Load("", tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "csv" {
		t.Errorf("Output.Format = %q", cfg.Output.Format)
	}
	if cfg.List.Limit != -1 || cfg.Log.Level != "info" {
		t.Errorf("defaults lost: limit %d level %q", cfg.List.Limit, cfg.Log.Level)
	}
}

func TestLoadWithHomeDir(t *testing.T) {
	envHome := t.TempDir()
	t.Setenv("PSTEXPLORER_HOME", envHome)
	writeConfig(t, envHome, "[list]\nlimit = 1\n")

	// An explicit home overrides the environment.
	override := t.TempDir()
	writeConfig(t, override, "[list]\nlimit = 2\n")

	cfg, err := Load("", override)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HomeDir != override {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, override)
	}
	if cfg.List.Limit != 2 {
		t.Errorf("List.Limit = %d, want 2 from %s", cfg.List.Limit, override)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	t.Setenv("PSTEXPLORER_HOME", t.TempDir())
	path := writeConfig(t, t.TempDir(), "[browse]\npage_size = 7\n")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Browse.PageSize != 7 {
		t.Errorf("Browse.PageSize = %d", cfg.Browse.PageSize)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), "")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load() error = %v, want not found", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[output\nformat = 1", "decode config"},
		{"wrong type", "[list]\nlimit = \"ten\"\n", "decode config"},
		{"unknown key", "[output]\nformat = \"json\"\ncolour = true\n", "unknown keys: output.colour"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"negative page size", "[browse]\npage_size = -3\n", "page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path, "")
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		cfg := &Config{Log: LogConfig{Level: in}}
		got, err := cfg.LogLevel()
		if err != nil || got != want {
			t.Errorf("LogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
		unixOnly bool
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "just tilde", input: "~", expected: home},
		{name: "tilde with slash and path", input: "~/foo", expected: filepath.Join(home, "foo")},
		{name: "tilde with trailing slash only", input: "~/", expected: home},
		{name: "tilde user notation not expanded", input: "~user", expected: "~user"},
		{name: "absolute path unchanged", input: "/var/data", expected: "/var/data", unixOnly: true},
		{name: "relative path unchanged", input: "data/out", expected: "data/out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.unixOnly && runtime.GOOS == "windows" {
				t.Skip("Unix-style path")
			}
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("PSTEXPLORER_HOME", "~/pst-data")
	if got, want := DefaultHome(), filepath.Join(home, "pst-data"); got != want {
		t.Errorf("DefaultHome() = %q, want %q", got, want)
	}

	t.Setenv("PSTEXPLORER_HOME", "")
	if got, want := DefaultHome(), filepath.Join(home, ".pstexplorer"); got != want {
		t.Errorf("DefaultHome() = %q, want %q", got, want)
	}
}

func TestLoadExpandsExportDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path := writeConfig(t, t.TempDir(), "[export]\ndir = \"~/exports\"\n")
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(home, "exports"); cfg.Export.Dir != want {
		t.Errorf("Export.Dir = %q, want %q", cfg.Export.Dir, want)
	}
}
