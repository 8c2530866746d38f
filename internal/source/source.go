// Package source reads station files: JSON arrays of station objects.
//
// Files are decoded as a stream so that point lookups and counts over large
// vendor files do not hold every record in memory.
package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/voyagen/stationvault/internal/models"
)

// MalformedError reports a station file that exists but cannot be parsed.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed station file %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func malformed(path string, err error) error {
	return &MalformedError{Path: path, Err: err}
}

// Each decodes path and calls fn for every record in file order until fn
// returns false. A missing file yields the *fs.PathError from os.Open; a file
// that is not a JSON array of objects yields *MalformedError. A top-level
// null is treated as an empty array.
func Each(path string, fn func(models.Station) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return malformed(path, errors.New("empty file"))
		}
		return malformed(path, err)
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return malformed(path, fmt.Errorf("expected array, found %v", tok))
	}

	for i := 0; dec.More(); i++ {
		var st models.Station
		if err := dec.Decode(&st); err != nil {
			return malformed(path, fmt.Errorf("record %d: %w", i, err))
		}
		if !fn(st) {
			return nil
		}
	}
	if _, err := dec.Token(); err != nil {
		return malformed(path, fmt.Errorf("unterminated array: %w", err))
	}
	return nil
}

// ReadAll returns every record in path.
func ReadAll(path string) ([]models.Station, error) {
	stations := make([]models.Station, 0, 64)
	err := Each(path, func(st models.Station) bool {
		stations = append(stations, st)
		return true
	})
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// Count returns the number of records in path. Errors are the same as Each;
// callers that want a best-effort number decide what a failure is worth.
func Count(path string) (uint64, error) {
	var n uint64
	err := Each(path, func(models.Station) bool {
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Find returns the first record whose stationId equals id.
func Find(path, id string) (models.Station, bool, error) {
	var (
		found models.Station
		ok    bool
	)
	err := Each(path, func(st models.Station) bool {
		if st.StationID == id {
			found, ok = st, true
			return false
		}
		return true
	})
	if err != nil {
		return models.Station{}, false, err
	}
	return found, ok, nil
}
