package catalog

import (
	"errors"
	"fmt"

	"github.com/voyagen/stationvault/internal/source"
)

var (
	// ErrNoDatabase matches any *NoDatabaseError.
	ErrNoDatabase = errors.New("no station database")
	// ErrNotFound matches any *NotFoundError.
	ErrNotFound = errors.New("station not found")
	// ErrRebuildInProgress is returned when another process holds the rebuild lock.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
)

// MalformedSourceError reports a source file that exists but cannot be parsed.
type MalformedSourceError = source.MalformedError

// NoDatabaseError is returned when neither the base nor the user file exists.
type NoDatabaseError struct {
	BasePath string
	UserPath string
}

func (e *NoDatabaseError) Error() string {
	return fmt.Sprintf("no station database: neither %s nor %s exists", e.BasePath, e.UserPath)
}

func (e *NoDatabaseError) Is(target error) bool { return target == ErrNoDatabase }

// NotFoundError is returned when a lookup matches no record.
type NotFoundError struct {
	StationID string
	Path      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("station %q not found in %s", e.StationID, e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IOError wraps a read, write, rename or remove failure on a named file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
