package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/voyagen/stationvault/internal/models"
)

// Mirror is an external store that can hold a full copy of the station
// catalog, such as the Postgres table in package store.
type Mirror interface {
	ReplaceStations(ctx context.Context, stations []models.Station) (int64, error)
}

// MirrorTo implements Service. The effective records are read in full and
// handed to m in one call, so m sees either all of them or none.
func (c *Catalog) MirrorTo(ctx context.Context, m Mirror) (int64, error) {
	stations, err := c.Records(ctx)
	if err != nil {
		return 0, err
	}
	n, err := m.ReplaceStations(ctx, stations)
	if err != nil {
		return 0, err
	}
	c.log.Info("catalog mirrored", zap.Int64("records", n))
	return n, nil
}
