// Package plan runs one complete plotting pass: load the station table,
// derive the polygon, build the export and lay out the plot.
package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"survey-plan/internal/export"
	"survey-plan/internal/geometry"
	"survey-plan/internal/render"
	"survey-plan/internal/survey"
)

// Metrics receives pass outcomes. A nil Metrics disables reporting.
type Metrics interface {
	PassCompleted(status string, stations int, d time.Duration)
	PassFailed(kind string)
}

// Notifier is told about every successful pass. Failures are logged and do
// not fail the pass.
type Notifier interface {
	PublishSummary(r *Result) error
}

type Runner struct {
	metrics  Metrics
	notifier Notifier
	logger   *logrus.Logger
}

func NewRunner(logger *logrus.Logger, metrics Metrics, notifier Notifier) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{metrics: metrics, notifier: notifier, logger: logger}
}

// Run performs one pass. It either returns a complete Result or a single
// *PassError; there is no partial output.
func (r *Runner) Run(ctx context.Context, src survey.Source, opts render.Options) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res, err = nil, &PassError{Kind: KindInternal, Err: fmt.Errorf("panic: %v", rec)}
		}
		if err != nil {
			kind := string(KindInternal)
			if pe, ok := err.(*PassError); ok {
				kind = string(pe.Kind)
			}
			r.logger.WithError(err).WithField("kind", kind).Warn("plot pass failed")
			if r.metrics != nil {
				r.metrics.PassFailed(kind)
			}
		}
	}()

	if err := opts.Validate(); err != nil {
		return nil, &PassError{Kind: KindInput, Err: err}
	}
	stations, err := src.Stations(ctx)
	if err != nil {
		return nil, &PassError{Kind: classifySourceErr(err), Err: err}
	}
	res, err = Compute(stations, opts)
	if err != nil {
		return nil, err
	}

	d := time.Since(start)
	r.logger.WithFields(logrus.Fields{
		"pass_id":  res.ID.String(),
		"stations": res.Summary.StationCount,
		"area_m2":  fmt.Sprintf("%.2f", res.Summary.AreaSqm),
		"status":   res.Summary.Status,
		"duration": d.String(),
	}).Info("plot pass complete")
	if r.metrics != nil {
		r.metrics.PassCompleted(res.Summary.Status, res.Summary.StationCount, d)
	}
	if r.notifier != nil {
		if perr := r.notifier.PublishSummary(res); perr != nil {
			r.logger.WithError(perr).Warn("publish pass summary")
		}
	}
	return res, nil
}

// Compute derives everything from an already loaded station table.
func Compute(stations []survey.Station, opts render.Options) (*Result, error) {
	poly, err := geometry.BuildPolygon(stations)
	if err != nil {
		return nil, &PassError{Kind: KindInput, Err: err}
	}
	fc := export.FromPolygon(poly)
	data, err := export.Marshal(fc)
	if err != nil {
		return nil, &PassError{Kind: KindInternal, Err: err}
	}
	return &Result{
		ID:       uuid.New(),
		Summary:  newSummary(poly),
		Stations: poly.Stations(),
		Options:  opts,
		Plan:     render.Build(poly, opts),
		Features: fc,
		GeoJSON:  data,
		Polygon:  poly,
	}, nil
}
