package plan

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"survey-plan/internal/geometry"
	"survey-plan/internal/render"
	"survey-plan/internal/survey"
)

// SquareMetresPerAcre converts the reported area to acres.
const SquareMetresPerAcre = 4046.856

const (
	StatusClosed = "Closed"
	StatusError  = "Error"
)

// Summary holds the four headline metrics of a pass.
type Summary struct {
	AreaSqm      float64 `json:"area_m2"`
	AreaAcres    float64 `json:"area_acres"`
	StationCount int     `json:"station_count"`
	Status       string  `json:"status"`
}

func newSummary(p *geometry.Polygon) Summary {
	status := StatusClosed
	if !p.IsClosed() {
		status = StatusError
	}
	return Summary{
		AreaSqm:      p.Area(),
		AreaAcres:    p.Area() / SquareMetresPerAcre,
		StationCount: len(p.Stations()),
		Status:       status,
	}
}

// Metrics renders the summary the way it is displayed.
func (s Summary) Metrics() map[string]string {
	return map[string]string{
		"area_m2":       fmt.Sprintf("%.2f", s.AreaSqm),
		"area_acres":    fmt.Sprintf("%.4f", s.AreaAcres),
		"station_count": fmt.Sprintf("%d", s.StationCount),
		"status":        s.Status,
	}
}

// Result is everything one pass produces.
type Result struct {
	ID       uuid.UUID                  `json:"id"`
	Summary  Summary                    `json:"summary"`
	Stations []survey.Station           `json:"stations"`
	Options  render.Options             `json:"options"`
	Plan     *render.Plan               `json:"plan"`
	Features *geojson.FeatureCollection `json:"-"`
	GeoJSON  []byte                     `json:"-"`
	Polygon  *geometry.Polygon          `json:"-"`
}

type ErrorKind string

const (
	KindInput    ErrorKind = "input"
	KindSource   ErrorKind = "source"
	KindInternal ErrorKind = "internal"
)

// PassError is the single error a failed pass reports.
type PassError struct {
	Kind ErrorKind
	Err  error
}

func (e *PassError) Error() string {
	switch e.Kind {
	case KindInput:
		return "invalid survey data: " + e.Err.Error()
	case KindSource:
		return "could not load stations: " + e.Err.Error()
	}
	return "plot failed: " + e.Err.Error()
}

func (e *PassError) Unwrap() error { return e.Err }

// IsInput reports whether err is a pass failure caused by the input table
// or the display options.
func IsInput(err error) bool {
	var pe *PassError
	return errors.As(err, &pe) && pe.Kind == KindInput
}

func classifySourceErr(err error) ErrorKind {
	switch {
	case errors.Is(err, survey.ErrEmptyTable),
		errors.Is(err, survey.ErrMissingColumn),
		errors.Is(err, survey.ErrInvalidValue),
		errors.Is(err, os.ErrNotExist):
		return KindInput
	}
	return KindSource
}
