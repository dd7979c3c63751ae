package render

import (
	"errors"
	"fmt"
	"math"
)

var ErrOptionOutOfRange = errors.New("display option out of range")

// Options are the user-facing display settings.
type Options struct {
	Theme              Theme   `json:"theme" yaml:"theme"`
	ShowGrid           bool    `json:"show_grid" yaml:"show_grid"`
	GridInterval       float64 `json:"grid_interval" yaml:"grid_interval"`
	StationLabelSize   float64 `json:"station_label_size" yaml:"station_label_size"`
	EdgeLabelSize      float64 `json:"edge_label_size" yaml:"edge_label_size"`
	StationLabelOffset float64 `json:"station_label_offset" yaml:"station_label_offset"`
}

// Limits of each numeric option, inclusive.
var (
	GridIntervalRange       = [2]float64{5, 50}
	StationLabelSizeRange   = [2]float64{6, 16}
	EdgeLabelSizeRange      = [2]float64{5, 12}
	StationLabelOffsetRange = [2]float64{0.5, 5.0}
)

func DefaultOptions() Options {
	return Options{
		Theme:              ThemeLight,
		ShowGrid:           true,
		GridInterval:       10,
		StationLabelSize:   10,
		EdgeLabelSize:      7,
		StationLabelOffset: 1.5,
	}
}

func (o Options) Validate() error {
	checks := []struct {
		name string
		v    float64
		r    [2]float64
	}{
		{"grid interval", o.GridInterval, GridIntervalRange},
		{"station label size", o.StationLabelSize, StationLabelSizeRange},
		{"edge label size", o.EdgeLabelSize, EdgeLabelSizeRange},
		{"station label offset", o.StationLabelOffset, StationLabelOffsetRange},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || c.v < c.r[0] || c.v > c.r[1] {
			return fmt.Errorf("%w: %s %g not in [%g, %g]", ErrOptionOutOfRange, c.name, c.v, c.r[0], c.r[1])
		}
	}
	if _, ok := themes[o.Theme]; !ok {
		return fmt.Errorf("%w: unknown theme %q", ErrOptionOutOfRange, o.Theme)
	}
	return nil
}
