package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STATIONVAULT_DATA_DIR", dir)
	t.Setenv("STATIONVAULT_EXPORT_DIR", filepath.Join(dir, "exports"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func writeStations(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCountWithoutDatabase(t *testing.T) {
	setupDataDir(t)
	code, out, _ := runCmd(t, "count")
	if code != 0 || strings.TrimSpace(out) != "0" {
		t.Errorf("count = %d %q, want 0 \"0\"", code, out)
	}
}

func TestLookupWithoutDatabase(t *testing.T) {
	setupDataDir(t)
	code, _, errOut := runCmd(t, "lookup", "1")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(errOut, "error: ") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestCommandsAgainstMergedDatabase(t *testing.T) {
	dir := setupDataDir(t)
	writeStations(t, filepath.Join(dir, "stations_base.json"),
		`[{"stationId":"1","name":"Base One","callSign":"B1"},{"stationId":"2","name":"Base Two"}]`)
	writeStations(t, filepath.Join(dir, "stations_user.json"),
		`[{"stationId":"2","name":"Mine","callSign":"M2"},{"stationId":"3","name":"Extra"}]`)

	if code, out, _ := runCmd(t, "count"); code != 0 || strings.TrimSpace(out) != "3" {
		t.Errorf("count = %d %q, want 3", code, out)
	}

	code, out, _ := runCmd(t, "lookup", "2")
	if code != 0 {
		t.Fatalf("lookup exit %d", code)
	}
	if !strings.Contains(out, "Name:       Mine") {
		t.Errorf("user record did not override base:\n%s", out)
	}

	if code, out, _ := runCmd(t, "field", "3", "callSign"); code != 0 || strings.TrimSpace(out) != "N/A" {
		t.Errorf("field = %d %q", code, out)
	}

	code, out, _ = runCmd(t, "breakdown")
	if code != 0 || !strings.Contains(out, "Total: 3") {
		t.Errorf("breakdown = %d\n%s", code, out)
	}

	code, out, _ = runCmd(t, "search", "base")
	if code != 0 || !strings.Contains(out, "1 match(es)") {
		t.Errorf("search = %d\n%s", code, out)
	}
}

func TestExportCommands(t *testing.T) {
	dir := setupDataDir(t)
	writeStations(t, filepath.Join(dir, "stations_base.json"), `[{"stationId":"1"},{"stationId":"2"}]`)

	target := filepath.Join(dir, "out.csv")
	code, out, errOut := runCmd(t, "export-csv", target)
	if code != 0 {
		t.Fatalf("export-csv exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Exported 2 stations to "+target) {
		t.Errorf("export-csv output %q", out)
	}

	code, out, _ = runCmd(t, "export-json")
	if code != 0 {
		t.Fatalf("export-json exit %d", code)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "exports", "stations_*.json"))
	if len(matches) != 1 {
		t.Errorf("default JSON export not found: %v (output %q)", matches, out)
	}
}

func TestRebuildInvalidateStatus(t *testing.T) {
	dir := setupDataDir(t)
	writeStations(t, filepath.Join(dir, "stations_base.json"), `[{"stationId":"1"}]`)
	writeStations(t, filepath.Join(dir, "stations_user.json"), `[{"stationId":"2"}]`)
	combined := filepath.Join(dir, "stations_combined.json")

	if code, _, _ := runCmd(t, "rebuild"); code != 0 {
		t.Fatalf("rebuild exit %d", code)
	}
	if _, err := os.Stat(combined); err != nil {
		t.Fatalf("combined not written: %v", err)
	}

	code, out, _ := runCmd(t, "status")
	if code != 0 {
		t.Fatalf("status exit %d", code)
	}
	var st struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("status is not JSON: %v\n%s", err, out)
	}
	if st.State != "fresh" {
		t.Errorf("state = %s, want fresh", st.State)
	}

	if code, _, _ := runCmd(t, "invalidate"); code != 0 {
		t.Fatalf("invalidate exit %d", code)
	}
	if _, err := os.Stat(combined); !os.IsNotExist(err) {
		t.Errorf("combined still present after invalidate: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	setupDataDir(t)
	if code, _, errOut := runCmd(t); code != 1 || !strings.Contains(errOut, "Commands:") {
		t.Errorf("no command = %d %q", code, errOut)
	}
	if code, _, errOut := runCmd(t, "frobnicate"); code != 1 || !strings.Contains(errOut, "unknown command") {
		t.Errorf("unknown command = %d %q", code, errOut)
	}
	if code, _, _ := runCmd(t, "lookup"); code != 1 {
		t.Errorf("lookup without id = %d", code)
	}
	if code, _, _ := runCmd(t, "export-pg"); code != 1 {
		t.Errorf("export-pg without DATABASE_URL = %d", code)
	}
}

func TestConfigFileFlag(t *testing.T) {
	setupDataDir(t)
	dir := t.TempDir()
	writeStations(t, filepath.Join(dir, "stations_base.json"), `[{"stationId":"1"},{"stationId":"2"},{"stationId":"3"}]`)
	cfgPath := filepath.Join(dir, "stationvault.yaml")
	writeStations(t, cfgPath, "data_dir: "+dir+"\nlog:\n  level: error\n")

	if code, out, _ := runCmd(t, "-config", cfgPath, "count"); code != 0 || strings.TrimSpace(out) != "3" {
		t.Errorf("count with -config = %d %q", code, out)
	}
}
