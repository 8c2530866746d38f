// Package store mirrors the station catalog into PostgreSQL so that other
// services can query it with SQL.
package store

import (
	"context"
	"errors"

	"github.com/voyagen/stationvault/internal/models"
)

// ErrNotFound is returned when a mirrored station does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the mirror table operations.
type Store interface {
	// ReplaceStations swaps the whole table for stations in one transaction
	// and returns the number of rows written.
	ReplaceStations(ctx context.Context, stations []models.Station) (int64, error)
	// CountStations returns the number of mirrored rows.
	CountStations(ctx context.Context) (int64, error)
	// GetStation returns the first mirrored row with the given stationId.
	GetStation(ctx context.Context, stationID string) (*models.Station, error)
}
