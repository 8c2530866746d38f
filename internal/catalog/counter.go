package catalog

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/voyagen/stationvault/internal/models"
	"github.com/voyagen/stationvault/internal/source"
)

// countFile counts one file, mapping any failure to 0. A missing file is the
// normal case for an optional source and is not logged.
func (c *Catalog) countFile(path string) uint64 {
	n, err := source.Count(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Warn("station file counted as empty", zap.String("path", path), zap.Error(err))
		}
		return 0
	}
	return n
}

// CountFast returns base count plus user count without merging. Overlapping
// ids are counted twice.
func (c *Catalog) CountFast() uint64 {
	return c.countFile(c.cfg.BasePath) + c.countFile(c.cfg.UserPath)
}

// Count implements Service. It counts the effective source, rebuilding the
// combined file if needed. No database yields 0; any other failure degrades
// to CountFast.
func (c *Catalog) Count(_ context.Context) uint64 {
	scan, path, err := c.scanEffective()
	if err != nil {
		if !errors.Is(err, ErrNoDatabase) {
			c.log.Warn("effective source unavailable, using fast count", zap.Error(err))
			return c.CountFast()
		}
		return 0
	}
	var n uint64
	if err := scan(func(models.Station) bool { n++; return true }); err != nil {
		c.log.Warn("effective source unreadable, using fast count", zap.String("path", path), zap.Error(err))
		return c.CountFast()
	}
	return n
}

// Breakdown implements Service. Total is the combined file's own count when
// that file is fresh, else base + user. It never rebuilds.
func (c *Catalog) Breakdown(_ context.Context) models.Breakdown {
	b := models.Breakdown{
		Base: c.countFile(c.cfg.BasePath),
		User: c.countFile(c.cfg.UserPath),
	}
	b.Total = b.Base + b.User

	snap, err := c.loc.inspect()
	if err != nil {
		c.log.Warn("cannot inspect station files", zap.Error(err))
		return b
	}
	if snap.State() != Fresh {
		return b
	}
	n, err := source.Count(c.cfg.CombinedPath)
	if err != nil {
		c.log.Warn("combined source counted via inputs", zap.String("path", c.cfg.CombinedPath), zap.Error(err))
		return b
	}
	b.Total = n
	b.Combined = true
	return b
}
