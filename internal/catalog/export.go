package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voyagen/stationvault/internal/models"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (use csv or json)", s)
}

// CSVHeader is the fixed column layout of CSV exports.
var CSVHeader = []string{"StationID", "Name", "CallSign", "Quality", "Countries", "LogoURL"}

// csvCountrySep joins availableIn in CSV cells; the detail view uses ", ".
const csvCountrySep = ";"

// ExportResult reports where an export went and how many records it holds.
type ExportResult struct {
	Path    string `json:"path"`
	Format  Format `json:"format"`
	Records uint64 `json:"records"`
}

// scanFunc feeds records to fn in source order until fn returns false.
type scanFunc func(fn func(models.Station) bool) error

// defaultExportPath builds <dir>/stations_<timestamp>.<ext>. When that name
// is taken, for example by another export in the same second, a counter is
// appended: stations_<timestamp>_2.<ext>, _3 and so on.
func defaultExportPath(dir string, f Format, now time.Time) string {
	stem := "stations_" + now.Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", stem, f))
	for i := 2; exists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", stem, i, f))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CSVRow renders one station as a CSV record.
func CSVRow(st *models.Station) []string {
	return []string{
		st.DisplayID(),
		st.DisplayName(),
		st.DisplayCallSign(),
		st.Quality(),
		st.Countries(csvCountrySep),
		st.LogoURL(),
	}
}

// writeCSV writes the header and one row per record. Scan errors are returned
// unchanged; write errors are reported against name.
func writeCSV(w io.Writer, name string, scan scanFunc) (uint64, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, ioErr("write", name, err)
	}
	var (
		n    uint64
		werr error
	)
	err := scan(func(st models.Station) bool {
		if werr = cw.Write(CSVRow(&st)); werr != nil {
			return false
		}
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	if werr != nil {
		return 0, ioErr("write", name, werr)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, ioErr("write", name, err)
	}
	return n, nil
}

// writeJSONArray writes records as an indented JSON array, with the same
// error split as writeCSV.
func writeJSONArray(w io.Writer, name string, scan scanFunc) (uint64, error) {
	aw := newJSONArrayWriter(w)
	var werr error
	err := scan(func(st models.Station) bool {
		werr = aw.add(st)
		return werr == nil
	})
	if err != nil {
		return 0, err
	}
	if werr != nil {
		return 0, ioErr("write", name, werr)
	}
	if err := aw.close(); err != nil {
		return 0, ioErr("write", name, err)
	}
	return aw.n, nil
}

// jsonArrayWriter streams records as a two-space indented JSON array, the
// same bytes json.MarshalIndent(records, "", "  ") would produce.
type jsonArrayWriter struct {
	w   io.Writer
	n   uint64
	buf bytes.Buffer
}

func newJSONArrayWriter(w io.Writer) *jsonArrayWriter {
	return &jsonArrayWriter{w: w}
}

func (a *jsonArrayWriter) add(st models.Station) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode station %q: %w", st.StationID, err)
	}
	a.buf.Reset()
	if a.n == 0 {
		a.buf.WriteString("[\n  ")
	} else {
		a.buf.WriteString(",\n  ")
	}
	if err := json.Indent(&a.buf, raw, "  ", "  "); err != nil {
		return fmt.Errorf("indent station %q: %w", st.StationID, err)
	}
	a.n++
	_, err = a.w.Write(a.buf.Bytes())
	return err
}

func (a *jsonArrayWriter) close() error {
	tail := "\n]\n"
	if a.n == 0 {
		tail = "[]\n"
	}
	_, err := io.WriteString(a.w, tail)
	return err
}

// export writes the records produced by scan to out in format f.
func export(f Format, out string, scan scanFunc) (uint64, error) {
	var n uint64
	err := writeAtomic(out, func(w io.Writer) error {
		var err error
		switch f {
		case FormatCSV:
			n, err = writeCSV(w, out, scan)
		case FormatJSON:
			n, err = writeJSONArray(w, out, scan)
		default:
			err = fmt.Errorf("unknown export format %q", f)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
