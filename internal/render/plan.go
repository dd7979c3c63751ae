// Package render plans where every annotation of a survey plot goes and
// draws the plan as SVG. Planning is independent of the drawing surface.
package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"

	"survey-plan/internal/geometry"
)

// EdgeLabel is the bearing and distance annotation of one edge.
type EdgeLabel struct {
	FromID     int       `json:"from"`
	ToID       int       `json:"to"`
	Position   orb.Point `json:"position"`
	Rotation   float64   `json:"rotation"`
	Text       string    `json:"text"`
	Bearing    float64   `json:"bearing"`
	BearingDMS string    `json:"bearing_dms"`
	Distance   float64   `json:"distance"`
}

// StationLabel is the id text pushed outward from the polygon plus the
// marker at the surveyed coordinate.
type StationLabel struct {
	ID       int       `json:"id"`
	Text     string    `json:"text"`
	Position orb.Point `json:"position"`
	Marker   orb.Point `json:"marker"`
}

type AreaLabel struct {
	Position orb.Point `json:"position"`
	Text     string    `json:"text"`
}

// Viewport is the visible world rectangle.
type Viewport struct {
	Min orb.Point `json:"min"`
	Max orb.Point `json:"max"`
}

func (v Viewport) Width() float64  { return v.Max[0] - v.Min[0] }
func (v Viewport) Height() float64 { return v.Max[1] - v.Min[1] }

// Plan is the full list of placement directives for one plot.
type Plan struct {
	Colors        Colors         `json:"colors"`
	Fill          orb.Ring       `json:"fill"`
	Boundary      orb.LineString `json:"boundary"`
	EdgeLabels    []EdgeLabel    `json:"edge_labels"`
	StationLabels []StationLabel `json:"station_labels"`
	AreaLabel     AreaLabel      `json:"area_label"`
	Viewport      Viewport       `json:"viewport"`
	ShowGrid      bool           `json:"show_grid"`
	GridX         []float64      `json:"grid_x,omitempty"`
	GridY         []float64      `json:"grid_y,omitempty"`
}

// gridMargin is the world-unit margin added around the rounded bounds.
const gridMargin = 20

// Build lays out every annotation for poly.
func Build(poly *geometry.Polygon, opts Options) *Plan {
	centroid := poly.Centroid()
	p := &Plan{
		Colors:   opts.Theme.Colors(),
		Fill:     poly.Ring(),
		Boundary: poly.Boundary(),
		ShowGrid: opts.ShowGrid,
		AreaLabel: AreaLabel{
			Position: centroid,
			Text:     AreaText(poly.Area()),
		},
	}

	for _, e := range poly.Edges() {
		dms := geometry.FormatDMS(e.Bearing)
		p.EdgeLabels = append(p.EdgeLabels, EdgeLabel{
			FromID:     e.From.ID,
			ToID:       e.To.ID,
			Position:   e.Midpoint(),
			Rotation:   e.LabelAngle,
			Text:       fmt.Sprintf("%s\n%.2fm", dms, e.Distance),
			Bearing:    e.Bearing,
			BearingDMS: dms,
			Distance:   e.Distance,
		})
	}

	for _, s := range poly.Stations() {
		pt := geometry.Point(s)
		p.StationLabels = append(p.StationLabels, StationLabel{
			ID:       s.ID,
			Text:     strconv.Itoa(s.ID),
			Position: geometry.RadialOffset(pt, centroid, opts.StationLabelOffset),
			Marker:   pt,
		})
	}

	b := poly.Bounds()
	if opts.ShowGrid {
		p.Viewport = Viewport{
			Min: orb.Point{math.Floor(b.Min[0]/10)*10 - gridMargin, math.Floor(b.Min[1]/10)*10 - gridMargin},
			Max: orb.Point{math.Ceil(b.Max[0]/10)*10 + gridMargin, math.Ceil(b.Max[1]/10)*10 + gridMargin},
		}
		p.GridX = gridLines(p.Viewport.Min[0], p.Viewport.Max[0], opts.GridInterval)
		p.GridY = gridLines(p.Viewport.Min[1], p.Viewport.Max[1], opts.GridInterval)
	} else {
		pad := math.Max(2*opts.StationLabelOffset, 0.05*math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]))
		p.Viewport = Viewport{
			Min: orb.Point{b.Min[0] - pad, b.Min[1] - pad},
			Max: orb.Point{b.Max[0] + pad, b.Max[1] + pad},
		}
	}
	return p
}

// AreaText is the centroid annotation.
func AreaText(area float64) string {
	return fmt.Sprintf("AREA\n%.2f m²", area)
}

// maxGridLines bounds the lines drawn along one axis; beyond it the grid is
// omitted.
const maxGridLines = 2000

// gridLines returns the multiples of step within [lo, hi], or nil when there
// would be more than maxGridLines of them or the multiples are not exactly
// representable.
func gridLines(lo, hi, step float64) []float64 {
	if !(step > 0) || !(hi >= lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	first, last := math.Ceil(lo/step), math.Floor(hi/step)
	if math.Abs(first) > 1<<53 || math.Abs(last) > 1<<53 {
		return nil
	}
	n := int64(last - first + 1)
	if n <= 0 || n > maxGridLines {
		return nil
	}
	out := make([]float64, 0, n)
	for i := int64(0); i < n; i++ {
		out = append(out, (first+float64(i))*step)
	}
	return out
}
