package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Lot is a surveyed parcel with at least one station.
type Lot struct {
	ID         string    `json:"id"`
	Stations   int       `json:"stations"`
	SurveyedAt time.Time `json:"surveyed_at"`
}

// ListLots returns lots ordered by most recent survey first.
func ListLots(ctx context.Context, db *sql.DB, limit int) ([]Lot, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT lot_id, COUNT(*) AS stations, MAX(surveyed_at) AS surveyed_at
FROM survey_stations
GROUP BY lot_id
ORDER BY MAX(surveyed_at) DESC
LIMIT $1`
	rows, err := db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		var l Lot
		if err := rows.Scan(&l.ID, &l.Stations, &l.SurveyedAt); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// LatestLot returns the most recently surveyed lot id.
func LatestLot(ctx context.Context, db *sql.DB) (string, error) {
	lots, err := ListLots(ctx, db, 1)
	if err != nil {
		return "", err
	}
	if len(lots) == 0 {
		return "", sql.ErrNoRows
	}
	return lots[0].ID, nil
}
