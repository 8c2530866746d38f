// Package catalog resolves which station file is authoritative, keeps the
// merged base+user view on disk, and answers lookups, counts, searches and
// exports against it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/voyagen/stationvault/internal/models"
	"github.com/voyagen/stationvault/internal/source"
)

// Searcher ranks stations in a station file against a free-text term.
type Searcher interface {
	Search(path, term string) ([]models.Station, error)
}

// Service is the query surface other subsystems depend on. Implemented by
// *Catalog and by the Redis-backed *Cached.
type Service interface {
	// Count returns the number of records in the effective source, 0 if none.
	Count(ctx context.Context) uint64
	// Breakdown returns per-source counts; unreadable sources count as 0.
	Breakdown(ctx context.Context) models.Breakdown
	// Lookup returns the record with the given stationId.
	Lookup(ctx context.Context, id string) (models.Station, error)
	// Detail renders the record with the given stationId for display.
	Detail(ctx context.Context, id string) (string, error)
	// Field projects name or callSign of one record.
	Field(ctx context.Context, id, field string) (string, bool, error)
	// Search runs the configured Searcher over the effective source.
	Search(ctx context.Context, term string) ([]models.Station, error)
	// Export writes the effective source to path (or a timestamped default).
	Export(ctx context.Context, format Format, path string) (ExportResult, error)
	// MirrorTo replaces the contents of m with the effective records.
	MirrorTo(ctx context.Context, m Mirror) (int64, error)
	// Rebuild discards the combined file and re-resolves, regenerating it
	// when both inputs exist. Returns the effective path.
	Rebuild(ctx context.Context) (string, error)
	// Invalidate removes the combined file.
	Invalidate(ctx context.Context) error
	// Status reports the on-disk state of all station files.
	Status(ctx context.Context) (Status, error)
}

// Config locates the station files. Paths are fixed for the lifetime of a
// Catalog.
type Config struct {
	BasePath     string
	UserPath     string
	CombinedPath string
	// ExportDir receives exports written without an explicit path.
	ExportDir string

	Searcher Searcher
	Logger   *zap.Logger
	// Now stamps default export names; time.Now when nil.
	Now func() time.Time
}

// Status is the result of Status.
type Status struct {
	Snapshot
	State       State  `json:"state"`
	Fingerprint string `json:"fingerprint"`
	// RebuildLocked is set by Cached when another process holds the rebuild lock.
	RebuildLocked bool `json:"rebuild_locked,omitempty"`
}

// Catalog is the file-backed Service.
type Catalog struct {
	cfg    Config
	log    *zap.Logger
	loc    *locator
	merge  *mergeCache
	search Searcher
	now    func() time.Time
}

var _ Service = (*Catalog)(nil)

// New validates cfg and returns a Catalog. No file is touched.
func New(cfg Config) (*Catalog, error) {
	if cfg.BasePath == "" || cfg.UserPath == "" || cfg.CombinedPath == "" {
		return nil, errors.New("catalog: base, user and combined paths are required")
	}
	if cfg.CombinedPath == cfg.BasePath || cfg.CombinedPath == cfg.UserPath {
		return nil, fmt.Errorf("catalog: combined path %s must differ from base and user paths", cfg.CombinedPath)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}
	mc := &mergeCache{base: cfg.BasePath, user: cfg.UserPath, combined: cfg.CombinedPath, log: log}
	return &Catalog{
		cfg:    cfg,
		log:    log,
		loc:    &locator{base: cfg.BasePath, user: cfg.UserPath, combined: cfg.CombinedPath, merge: mc},
		merge:  mc,
		search: cfg.Searcher,
		now:    now,
	}, nil
}

// Exists reports whether a base or user file is present, without merging.
func (c *Catalog) Exists() bool { return c.loc.fastExists() }

// Snapshot stats the three station files.
func (c *Catalog) Snapshot() (Snapshot, error) { return c.loc.inspect() }

// EffectivePath resolves the file queries read, rebuilding the combined file
// when it is stale.
func (c *Catalog) EffectivePath() (string, error) { return c.loc.resolve() }

// scanEffective resolves the effective source and returns a scanner over it
// plus the path it reads. If the combined file disappears between resolve and
// open, because another process invalidated it, the scanner falls back to an
// in-memory merge of the inputs, or to *NoDatabaseError if they are gone too.
func (c *Catalog) scanEffective() (scanFunc, string, error) {
	path, err := c.loc.resolve()
	if err != nil {
		return nil, "", err
	}
	scan := func(fn func(models.Station) bool) error {
		err := source.Each(path, fn)
		if err == nil {
			return nil
		}
		if path != c.cfg.CombinedPath || !errors.Is(err, fs.ErrNotExist) {
			return readErr(path, err)
		}
		if !c.loc.fastExists() {
			return &NoDatabaseError{BasePath: c.cfg.BasePath, UserPath: c.cfg.UserPath}
		}
		c.log.Warn("combined source vanished during read, merging in memory", zap.String("path", path))
		stations, merr := c.merge.merged(true)
		if merr != nil {
			return merr
		}
		return sliceScan(stations)(fn)
	}
	return scan, path, nil
}

// Lookup implements Service.
func (c *Catalog) Lookup(_ context.Context, id string) (models.Station, error) {
	scan, path, err := c.scanEffective()
	if err != nil {
		return models.Station{}, err
	}
	return findStation(scan, id, path)
}

// Detail implements Service.
func (c *Catalog) Detail(ctx context.Context, id string) (string, error) {
	st, err := c.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderDetail(&st), nil
}

// Field implements Service.
func (c *Catalog) Field(ctx context.Context, id, field string) (string, bool, error) {
	if _, _, err := fieldValue(&models.Station{}, field); err != nil {
		return "", false, err
	}
	st, err := c.Lookup(ctx, id)
	if err != nil {
		return "", false, err
	}
	return fieldValue(&st, field)
}

// Search implements Service. The combined file is re-resolved once if it
// vanishes before the searcher opens it.
func (c *Catalog) Search(_ context.Context, term string) ([]models.Station, error) {
	if c.search == nil {
		return nil, errors.New("search is not configured")
	}
	var (
		matches []models.Station
		err     error
	)
	for attempt := 0; attempt < 2; attempt++ {
		var path string
		if path, err = c.loc.resolve(); err != nil {
			return nil, err
		}
		matches, err = c.search.Search(path, term)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			break
		}
	}
	return matches, err
}

// Export implements Service. An empty path writes to the export directory
// under a timestamped name.
func (c *Catalog) Export(_ context.Context, format Format, path string) (ExportResult, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return ExportResult{}, err
	}
	scan, _, err := c.scanEffective()
	if err != nil {
		return ExportResult{}, err
	}
	if path == "" {
		path = defaultExportPath(c.cfg.ExportDir, format, c.now())
	}
	n, err := export(format, path, scan)
	if err != nil {
		return ExportResult{}, err
	}
	c.log.Info("export written",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Uint64("records", n))
	return ExportResult{Path: path, Format: format, Records: n}, nil
}

// ExportCSV writes a CSV export; see Export.
func (c *Catalog) ExportCSV(ctx context.Context, path string) (ExportResult, error) {
	return c.Export(ctx, FormatCSV, path)
}

// ExportJSON writes a JSON export; see Export.
func (c *Catalog) ExportJSON(ctx context.Context, path string) (ExportResult, error) {
	return c.Export(ctx, FormatJSON, path)
}

// Rebuild implements Service.
func (c *Catalog) Rebuild(_ context.Context) (string, error) {
	if err := c.merge.invalidate(); err != nil {
		return "", err
	}
	return c.loc.resolve()
}

// Invalidate implements Service.
func (c *Catalog) Invalidate(_ context.Context) error {
	return c.merge.invalidate()
}

// Status implements Service.
func (c *Catalog) Status(_ context.Context) (Status, error) {
	snap, err := c.loc.inspect()
	if err != nil {
		return Status{}, err
	}
	return Status{Snapshot: snap, State: snap.State(), Fingerprint: snap.Fingerprint()}, nil
}

// Records returns every record of the effective source in order.
func (c *Catalog) Records(_ context.Context) ([]models.Station, error) {
	scan, _, err := c.scanEffective()
	if err != nil {
		return nil, err
	}
	var out []models.Station
	err = scan(func(st models.Station) bool {
		out = append(out, st)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
