package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fixture struct {
	dir      string
	base     string
	user     string
	combined string
	exports  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		dir:      dir,
		base:     filepath.Join(dir, "stations_base.json"),
		user:     filepath.Join(dir, "stations_user.json"),
		combined: filepath.Join(dir, "stations_combined.json"),
		exports:  filepath.Join(dir, "exports"),
	}
}

func (f *fixture) catalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(Config{
		BasePath:     f.base,
		UserPath:     f.user,
		CombinedPath: f.combined,
		ExportDir:    f.exports,
		Now:          func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// writeJSON writes v to path and backdates its mtime so that files written
// later in the test are reliably newer.
func writeJSON(t *testing.T, path string, v any, age time.Duration) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	writeRaw(t, path, string(data), age)
}

func writeRaw(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	setAge(t, path, age)
}

func setAge(t *testing.T, path string, age time.Duration) {
	t.Helper()
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func station(id, name, callSign string) map[string]any {
	return map[string]any{"stationId": id, "name": name, "callSign": callSign}
}

// numbered returns n stations with ids prefix1..prefixN.
func numbered(prefix string, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = station(id, "Station "+id, "C"+id)
	}
	return out
}
