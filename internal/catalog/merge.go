package catalog

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/voyagen/stationvault/internal/models"
	"github.com/voyagen/stationvault/internal/source"
)

// Merge combines base and user records. A user record replaces the base
// record with the same stationId in place; user records with new ids follow
// in user order. Within each source the first occurrence of an id wins.
// Records without a stationId cannot be matched and are all kept.
func Merge(base, user []models.Station) []models.Station {
	overrides := make(map[string]models.Station, len(user))
	for _, st := range user {
		if st.StationID == "" {
			continue
		}
		if _, dup := overrides[st.StationID]; !dup {
			overrides[st.StationID] = st
		}
	}

	out := make([]models.Station, 0, len(base)+len(user))
	seen := make(map[string]bool, len(base)+len(user))
	for _, st := range base {
		if st.StationID != "" {
			if seen[st.StationID] {
				continue
			}
			seen[st.StationID] = true
			if o, ok := overrides[st.StationID]; ok {
				st = o
			}
		}
		out = append(out, st)
	}
	for _, st := range user {
		if st.StationID != "" {
			if seen[st.StationID] {
				continue
			}
			seen[st.StationID] = true
		}
		out = append(out, st)
	}
	return out
}

// mergeCache owns the combined file.
type mergeCache struct {
	base, user, combined string
	log                  *zap.Logger
}

// readInput reads one input file. A missing file reads as empty when
// optional is set.
func readInput(path string, optional bool) ([]models.Station, error) {
	sts, err := source.ReadAll(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, readErr(path, err)
	}
	return sts, nil
}

// merged reads both inputs and merges them in memory without touching disk.
func (m *mergeCache) merged(optional bool) ([]models.Station, error) {
	base, err := readInput(m.base, optional)
	if err != nil {
		return nil, err
	}
	user, err := readInput(m.user, optional)
	if err != nil {
		return nil, err
	}
	return Merge(base, user), nil
}

// rebuild regenerates the combined file from base and user and returns its
// path. Readers see either the previous file or the new one.
func (m *mergeCache) rebuild() (string, error) {
	stations, err := m.merged(false)
	if err != nil {
		return "", err
	}
	m.removeStaleTemps()
	err = writeAtomic(m.combined, func(w io.Writer) error {
		_, err := writeJSONArray(w, m.combined, sliceScan(stations))
		return err
	})
	if err != nil {
		return "", err
	}
	m.log.Info("combined source rebuilt",
		zap.String("path", m.combined),
		zap.Int("records", len(stations)))
	return m.combined, nil
}

// staleTempAge is how old a leftover rebuild temp file must be before it is
// removed. Younger files may belong to a rebuild still running elsewhere.
const staleTempAge = 10 * time.Minute

// removeStaleTemps deletes temp files left next to the combined file by
// rebuilds that were killed before the rename.
func (m *mergeCache) removeStaleTemps() {
	matches, err := filepath.Glob(tempPattern(m.combined))
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-staleTempAge)
	for _, p := range matches {
		fi, err := os.Lstat(p)
		if err != nil || !fi.Mode().IsRegular() || fi.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.log.Warn("cannot remove stale temp file", zap.String("path", p), zap.Error(err))
			continue
		}
		m.log.Info("removed stale temp file", zap.String("path", p))
	}
}

// tempPattern matches the temp files writeAtomic creates for path.
func tempPattern(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
}

// invalidate removes the combined file; a missing file is not an error.
func (m *mergeCache) invalidate() error {
	if err := os.Remove(m.combined); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioErr("remove", m.combined, err)
	}
	return nil
}

// writeAtomic streams content into a temp file next to path and renames it
// into place once everything has been written and synced. On any failure the
// temp file is removed and path is left as it was.
func writeAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErr("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return ioErr("create temp in", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return ioErr("write", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return ioErr("sync", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return ioErr("close", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return ioErr("chmod", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return ioErr("rename", path, err)
	}
	return nil
}

// sliceScan iterates over records already in memory.
func sliceScan(stations []models.Station) scanFunc {
	return func(fn func(models.Station) bool) error {
		for _, st := range stations {
			if !fn(st) {
				break
			}
		}
		return nil
	}
}

// readErr classifies a failure reading a station file: parse failures pass
// through as *MalformedSourceError, everything else becomes *IOError.
func readErr(path string, err error) error {
	if err == nil {
		return nil
	}
	var me *MalformedSourceError
	if errors.As(err, &me) {
		return err
	}
	return ioErr("read", path, err)
}
