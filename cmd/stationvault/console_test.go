package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voyagen/stationvault/internal/models"
)

func TestConsoleNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf)
	if c.color {
		t.Fatal("color enabled for a buffer")
	}
	c.field("Total", "3")
	if got := buf.String(); got != "Total: 3\n" {
		t.Errorf("field = %q", got)
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if colorEnabled(f) {
		t.Error("color enabled for a regular file")
	}
}

func TestColorEnabledHonoursOptOut(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if colorEnabled(os.Stdout) {
		t.Error("color enabled with NO_COLOR set")
	}
	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "dumb")
	if colorEnabled(os.Stdout) {
		t.Error("color enabled with TERM=dumb")
	}
}

func TestConsoleStations(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf)
	c.stations(nil)
	if !strings.Contains(buf.String(), "no matches") {
		t.Errorf("empty result output %q", buf.String())
	}

	buf.Reset()
	c.stations([]models.Station{{StationID: "10021", CallSign: "WNETDT", Name: "WNET"}, {StationID: "7"}})
	want := "10021        WNETDT     WNET\n" +
		"7            N/A        N/A\n" +
		"2 match(es)\n"
	if buf.String() != want {
		t.Errorf("stations:\n%q\nwant:\n%q", buf.String(), want)
	}
}
