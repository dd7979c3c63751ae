package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"survey-plan/internal/survey"
)

// Attributes are the derived values of one boundary edge.
type Attributes struct {
	Distance   float64 // input length units
	Bearing    float64 // compass azimuth, [0, 360)
	LabelAngle float64 // text rotation, (-90, 90]
}

// Edge joins a station to the next one in traversal order.
type Edge struct {
	From, To survey.Station
	Attributes
}

// Midpoint is where the edge label is anchored.
func (e Edge) Midpoint() orb.Point {
	return orb.Point{(e.From.E + e.To.E) / 2, (e.From.N + e.To.N) / 2}
}

// EdgeAttributes computes distance, bearing and label rotation from p1 to p2.
//
// Bearing uses the compass convention atan2(dE, dN): 0 is north and angles
// grow clockwise. The label angle uses the mathematical convention
// atan2(dN, dE) folded into (-90, 90] so text never renders upside down.
func EdgeAttributes(p1, p2 orb.Point) Attributes {
	dE, dN := p2[0]-p1[0], p2[1]-p1[1]
	return Attributes{
		Distance:   planar.Distance(p1, p2),
		Bearing:    Bearing(dE, dN),
		LabelAngle: LabelAngle(dE, dN),
	}
}

func Bearing(dE, dN float64) float64 {
	return math.Mod(degrees(math.Atan2(dE, dN))+360, 360)
}

func LabelAngle(dE, dN float64) float64 {
	a := degrees(math.Atan2(dN, dE))
	if a > 90 {
		a -= 180
	}
	if a <= -90 {
		a += 180
	}
	return a
}

// FormatDMS renders decimal degrees as D°MM'SS". Degrees and minutes are
// truncated, seconds are rounded half away from zero without carrying into
// minutes. Minutes and seconds are always printed unsigned.
func FormatDMS(deg float64) string {
	d := math.Trunc(deg)
	mf := (deg - d) * 60
	m := math.Trunc(mf)
	s := math.Round((mf - m) * 60)
	return fmt.Sprintf("%d°%02d'%02d\"", int(d), absInt(int(m)), absInt(int(s)))
}

// RadialOffset pushes station away from centroid by magnitude. A station
// that coincides with the centroid is returned unchanged.
func RadialOffset(station, centroid orb.Point, magnitude float64) orb.Point {
	ve, vn := station[0]-centroid[0], station[1]-centroid[1]
	mag := math.Hypot(ve, vn)
	if mag == 0 {
		return station
	}
	return orb.Point{station[0] + ve/mag*magnitude, station[1] + vn/mag*magnitude}
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
