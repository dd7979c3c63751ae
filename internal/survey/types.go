package survey

import (
	"context"
	"errors"
)

var (
	ErrEmptyTable    = errors.New("station table is empty")
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidValue  = errors.New("invalid value")
)

// Station is one surveyed point. Slice order is boundary traversal order.
type Station struct {
	ID int     `json:"stn"`
	E  float64 `json:"e"` // easting
	N  float64 `json:"n"` // northing
}

// Source supplies an ordered station table for a single pass.
type Source interface {
	Stations(ctx context.Context) ([]Station, error)
}
