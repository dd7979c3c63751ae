package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"survey-plan/internal/survey"
)

// StationsTable holds one row per surveyed station, keyed by lot.
const StationsTable = "survey_stations"

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchStations returns the stations of a lot in traversal order.
// Coordinates come from plain e/n columns when present, otherwise from a
// PostGIS point column named geom.
func FetchStations(ctx context.Context, db *sql.DB, lot string) ([]survey.Station, error) {
	cols, err := hasColumns(ctx, db, "public", StationsTable, "e", "n", "geom")
	if err != nil {
		return nil, fmt.Errorf("introspect %s columns: %w", StationsTable, err)
	}
	var q string
	switch {
	case cols["e"] && cols["n"]:
		q = `SELECT stn, e, n FROM survey_stations WHERE lot_id = $1 ORDER BY seq`
	case cols["geom"]:
		q = `SELECT stn, ST_X(geom::geometry), ST_Y(geom::geometry)
             FROM survey_stations WHERE lot_id = $1 ORDER BY seq`
	default:
		return nil, fmt.Errorf("%s missing expected columns (e/n or geom)", StationsTable)
	}

	rows, err := db.QueryContext(ctx, q, lot)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var out []survey.Station
	for rows.Next() {
		var s survey.Station
		var e, n sql.NullFloat64
		if err := rows.Scan(&s.ID, &e, &n); err != nil {
			return nil, err
		}
		if !e.Valid || !n.Valid {
			return nil, fmt.Errorf("%w: station %d has no coordinates", survey.ErrInvalidValue, s.ID)
		}
		s.E, s.N = e.Float64, n.Float64
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("lot %q: %w", lot, survey.ErrEmptyTable)
	}
	return out, nil
}

// LotSource loads one lot's stations from PostgreSQL.
type LotSource struct {
	DB  *sql.DB
	Lot string
}

func (s LotSource) Stations(ctx context.Context) ([]survey.Station, error) {
	return FetchStations(ctx, s.DB, s.Lot)
}

// hasColumns returns a map of requested column names to existence for the given table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	for _, c := range cols {
		res[c] = false
	}
	q := `SELECT column_name FROM information_schema.columns
          WHERE table_schema = $1 AND table_name = $2`
	rows, err := db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if _, wanted := res[name]; wanted {
			res[name] = true
		}
	}
	return res, rows.Err()
}
