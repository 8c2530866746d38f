package catalog

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// State describes the combined file relative to its inputs.
type State int

const (
	// Absent: no combined file on disk.
	Absent State = iota
	// Stale: a combined file exists but is older than an input, or an input
	// it was built from is gone.
	Stale
	// Fresh: the combined file is at least as new as both inputs.
	Fresh
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FileInfo is the on-disk status of one station file.
type FileInfo struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time"`
}

// Snapshot is the status of all three station files at one instant.
type Snapshot struct {
	Base     FileInfo `json:"base"`
	User     FileInfo `json:"user"`
	Combined FileInfo `json:"combined"`
}

// State classifies the combined file. A combined file is only trusted when
// both inputs exist and neither has been modified after it.
func (s Snapshot) State() State {
	if !s.Combined.Exists {
		return Absent
	}
	if !s.Base.Exists || !s.User.Exists {
		return Stale
	}
	if s.Combined.ModTime.Before(s.Base.ModTime) || s.Combined.ModTime.Before(s.User.ModTime) {
		return Stale
	}
	return Fresh
}

// Fingerprint is a short hash of the file states; it changes whenever any of
// the three files is created, removed, resized or touched.
func (s Snapshot) Fingerprint() string {
	raw := ""
	for _, fi := range []FileInfo{s.Base, s.User, s.Combined} {
		raw += fmt.Sprintf("%s|%v|%d|%d;", fi.Path, fi.Exists, fi.Size, fi.ModTime.UnixNano())
	}
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}

// locator picks the file a query should read.
type locator struct {
	base, user, combined string
	merge                *mergeCache
}

func statFile(path string) (FileInfo, error) {
	fi := FileInfo{Path: path}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fi, nil
		}
		return fi, ioErr("stat", path, err)
	}
	fi.Exists = true
	fi.Size = st.Size()
	fi.ModTime = st.ModTime()
	return fi, nil
}

// inspect stats all three files. Any stat failure other than "does not exist"
// is returned, together with whatever was learned before it.
func (l *locator) inspect() (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Base, err = statFile(l.base); err != nil {
		return snap, err
	}
	if snap.User, err = statFile(l.user); err != nil {
		return snap, err
	}
	if snap.Combined, err = statFile(l.combined); err != nil {
		return snap, err
	}
	return snap, nil
}

// fastExists reports whether a base or user file exists. It never looks at
// the combined file and never rebuilds.
func (l *locator) fastExists() bool {
	for _, p := range []string{l.base, l.user} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// resolve returns the effective source path:
// a fresh combined file, else a rebuilt one when both inputs exist, else the
// single existing input, else *NoDatabaseError.
func (l *locator) resolve() (string, error) {
	snap, err := l.inspect()
	if err != nil {
		return "", err
	}
	switch {
	case snap.State() == Fresh:
		return l.combined, nil
	case snap.Base.Exists && snap.User.Exists:
		return l.merge.rebuild()
	case snap.Base.Exists:
		return l.base, nil
	case snap.User.Exists:
		return l.user, nil
	}
	return "", &NoDatabaseError{BasePath: l.base, UserPath: l.user}
}
