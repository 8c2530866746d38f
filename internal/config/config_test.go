package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STATIONVAULT_DATA_DIR", dir)
	t.Setenv("STATIONVAULT_SEARCH_LIMIT", "7")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BasePath != filepath.Join(dir, DefaultBaseFile) {
		t.Errorf("BasePath = %s", cfg.BasePath)
	}
	if cfg.UserPath != filepath.Join(dir, DefaultUserFile) {
		t.Errorf("UserPath = %s", cfg.UserPath)
	}
	if cfg.CombinedPath != filepath.Join(dir, DefaultCombinedFile) {
		t.Errorf("CombinedPath = %s", cfg.CombinedPath)
	}
	if cfg.SearchLimit != 7 {
		t.Errorf("SearchLimit = %d, want 7", cfg.SearchLimit)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %s, want 30s", cfg.CacheTTL)
	}
	if cfg.ExportDir != "." || cfg.ServerPort != "8080" {
		t.Errorf("defaults: ExportDir %q ServerPort %q", cfg.ExportDir, cfg.ServerPort)
	}
}

func TestLoadExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STATIONVAULT_BASE_PATH", filepath.Join(dir, "a.json"))
	t.Setenv("STATIONVAULT_COMBINED_PATH", filepath.Join(dir, "a.json"))

	if _, err := Load(); !errors.Is(err, ErrSamePaths) {
		t.Errorf("expected ErrSamePaths, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stationvault.yaml")
	yml := `data_dir: /srv/stations
user_path: /home/me/my_stations.json
export_dir: /tmp/exports
cache_ttl: 5m
log:
  level: debug
  encoding: json
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BasePath != filepath.Join("/srv/stations", DefaultBaseFile) {
		t.Errorf("BasePath = %s", cfg.BasePath)
	}
	if cfg.UserPath != "/home/me/my_stations.json" {
		t.Errorf("UserPath = %s", cfg.UserPath)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Encoding != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.SearchLimit != 50 {
		t.Errorf("SearchLimit default = %d", cfg.SearchLimit)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnvFile(t *testing.T) {
	t.Setenv("SV_TEST_KEEP", "original")
	t.Setenv("SV_TEST_PLAIN", "")
	os.Unsetenv("SV_TEST_PLAIN")
	t.Setenv("SV_TEST_QUOTED", "")
	os.Unsetenv("SV_TEST_QUOTED")

	applyEnvFile([]byte(`
# comment
SV_TEST_KEEP=replaced
export SV_TEST_PLAIN = value
SV_TEST_QUOTED="with spaces"
not a pair
`))

	if got := os.Getenv("SV_TEST_KEEP"); got != "original" {
		t.Errorf("existing variable replaced: %q", got)
	}
	if got := os.Getenv("SV_TEST_PLAIN"); got != "value" {
		t.Errorf("SV_TEST_PLAIN = %q", got)
	}
	if got := os.Getenv("SV_TEST_QUOTED"); got != "with spaces" {
		t.Errorf("SV_TEST_QUOTED = %q", got)
	}
}
