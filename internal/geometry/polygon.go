// Package geometry derives the closed survey polygon and its per-edge
// attributes from an ordered station table. Coordinates are planar.
package geometry

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"survey-plan/internal/survey"
)

// MinStations is the smallest station count that encloses an area.
const MinStations = 3

var ErrTooFewStations = errors.New("at least 3 stations are required")

// Polygon is the implicitly closed boundary traversed in station order.
type Polygon struct {
	stations   []survey.Station
	ring       orb.Ring
	signedArea float64
	centroid   orb.Point
	valid      bool
}

// BuildPolygon constructs the polygon from stations in input order. Fewer than
// MinStations rows is an error; a degenerate or self-intersecting boundary is
// not, and is reported through Valid instead.
func BuildPolygon(stations []survey.Station) (*Polygon, error) {
	if len(stations) < MinStations {
		return nil, ErrTooFewStations
	}
	st := make([]survey.Station, len(stations))
	copy(st, stations)

	ring := make(orb.Ring, 0, len(st)+1)
	for _, s := range st {
		ring = append(ring, Point(s))
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}

	p := &Polygon{stations: st, ring: ring}
	p.signedArea = shoelace(ring)
	p.valid = validRing(ring, p.signedArea)
	p.centroid = centroidOf(ring, p.signedArea)
	return p, nil
}

// Point converts a station to an orb point (X = easting, Y = northing).
func Point(s survey.Station) orb.Point { return orb.Point{s.E, s.N} }

// Stations returns the stations the polygon was built from.
func (p *Polygon) Stations() []survey.Station { return p.stations }

// Ring returns the closed exterior ring.
func (p *Polygon) Ring() orb.Ring { return p.ring }

// Orb returns the polygon as an orb.Polygon with a single exterior ring.
func (p *Polygon) Orb() orb.Polygon { return orb.Polygon{p.ring} }

// Boundary returns the station coordinates with the first one appended,
// one vertex per station plus the closing vertex.
func (p *Polygon) Boundary() orb.LineString {
	ls := make(orb.LineString, 0, len(p.stations)+1)
	for _, s := range p.stations {
		ls = append(ls, Point(s))
	}
	return append(ls, ls[0])
}

// SignedArea is the shoelace area, positive for counter-clockwise traversal.
func (p *Polygon) SignedArea() float64 { return p.signedArea }

// Area is the magnitude of the enclosed area in square input units.
func (p *Polygon) Area() float64 { return math.Abs(p.signedArea) }

// Centroid is the area-weighted centre of the interior.
func (p *Polygon) Centroid() orb.Point { return p.centroid }

// Valid reports whether the boundary is a simple ring enclosing non-zero area.
func (p *Polygon) Valid() bool { return p.valid }

// IsClosed reports whether the implicitly closed boundary forms a valid
// simple closed ring.
func (p *Polygon) IsClosed() bool { return p.valid && p.ring.Closed() }

// Bounds is the bounding box of the ring.
func (p *Polygon) Bounds() orb.Bound { return p.ring.Bound() }

// Edges returns one edge per station, from station i to station (i+1) mod N.
func (p *Polygon) Edges() []Edge {
	n := len(p.stations)
	edges := make([]Edge, 0, n)
	for i := 0; i < n; i++ {
		from, to := p.stations[i], p.stations[(i+1)%n]
		edges = append(edges, Edge{
			From:       from,
			To:         to,
			Attributes: EdgeAttributes(Point(from), Point(to)),
		})
	}
	return edges
}

func shoelace(ring orb.Ring) float64 {
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

func centroidOf(ring orb.Ring, signedArea float64) orb.Point {
	if signedArea != 0 {
		c, _ := planar.CentroidArea(orb.Polygon{ring})
		return c
	}
	// Zero area: fall back to the mean of the distinct vertices.
	var sx, sy float64
	n := len(ring) - 1
	for _, pt := range ring[:n] {
		sx += pt[0]
		sy += pt[1]
	}
	return orb.Point{sx / float64(n), sy / float64(n)}
}
