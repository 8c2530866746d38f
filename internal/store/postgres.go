package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/stationvault/internal/models"
)

var stationColumns = []string{
	"station_id", "name", "call_sign", "video_type", "available_in", "logo_uri", "raw", "position",
}

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// stationRow flattens a station into the mirror table's columns. The raw
// JSON keeps fields the table does not model.
func stationRow(st *models.Station, pos int) ([]any, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode station %q: %w", st.StationID, err)
	}
	var videoType, logo string
	if st.VideoQuality != nil {
		videoType = st.VideoQuality.VideoType
	}
	if st.PreferredImage != nil {
		logo = st.PreferredImage.URI
	}
	countries := st.AvailableIn
	if countries == nil {
		countries = []string{}
	}
	return []any{st.StationID, st.Name, st.CallSign, videoType, countries, logo, raw, pos}, nil
}

// ReplaceStations deletes every mirrored row and bulk-copies stations in one
// transaction, so readers see the old table or the new one.
func (p *Postgres) ReplaceStations(ctx context.Context, stations []models.Station) (int64, error) {
	rows := make([][]any, 0, len(stations))
	for i := range stations {
		row, err := stationRow(&stations[i], i)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ReplaceStations begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM stations`); err != nil {
		return 0, fmt.Errorf("delete stations: %w", err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"stations"}, stationColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy stations: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ReplaceStations commit: %w", err)
	}
	return n, nil
}

// CountStations returns the number of mirrored rows.
func (p *Postgres) CountStations(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountStations: %w", err)
	}
	return n, nil
}

// GetStation returns the first mirrored row (by file position) for stationID.
func (p *Postgres) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT raw FROM stations WHERE station_id = $1 ORDER BY position LIMIT 1`,
		stationID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetStation: %w", err)
	}
	var st models.Station
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("GetStation decode: %w", err)
	}
	return &st, nil
}
