package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// validRing reports whether a closed ring is simple and encloses area.
// Repeated consecutive vertices are collapsed before testing.
func validRing(ring orb.Ring, signedArea float64) bool {
	pts := distinctVertices(ring)
	n := len(pts)
	if n < 3 {
		return false
	}
	b := ring.Bound()
	w, h := b.Right()-b.Left(), b.Top()-b.Bottom()
	if math.Abs(signedArea) <= 1e-12*(w*w+h*h) {
		return false
	}

	seg := func(i int) (orb.Point, orb.Point) { return pts[i], pts[(i+1)%n] }
	for i := 0; i < n; i++ {
		a1, a2 := seg(i)
		for j := i + 1; j < n; j++ {
			b1, b2 := seg(j)
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if adjacent {
				// shared vertex is expected; folding back onto the previous edge is not
				var prev, shared, next orb.Point
				if j == i+1 {
					prev, shared, next = a1, a2, b2
				} else {
					prev, shared, next = b1, a1, a2
				}
				if backtracks(prev, shared, next) {
					return false
				}
				continue
			}
			if segmentsIntersect(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

func distinctVertices(ring orb.Ring) []orb.Point {
	open := ring
	if ring.Closed() {
		open = ring[:len(ring)-1]
	}
	out := make([]orb.Point, 0, len(open))
	for _, p := range open {
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1].Equal(out[0]) {
		out = out[:len(out)-1]
	}
	return out
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// backtracks reports whether next lies on the line through prev and shared
// and heads back towards prev.
func backtracks(prev, shared, next orb.Point) bool {
	if cross(prev, shared, next) != 0 {
		return false
	}
	dx1, dy1 := shared[0]-prev[0], shared[1]-prev[1]
	dx2, dy2 := next[0]-shared[0], next[1]-shared[1]
	return dx1*dx2+dy1*dy2 < 0
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(p, q, r orb.Point) bool {
	return math.Min(p[0], r[0]) <= q[0] && q[0] <= math.Max(p[0], r[0]) &&
		math.Min(p[1], r[1]) <= q[1] && q[1] <= math.Max(p[1], r[1])
}

// segmentsIntersect includes touching and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := sign(cross(p1, p2, q1))
	d2 := sign(cross(p1, p2, q2))
	d3 := sign(cross(q1, q2, p1))
	d4 := sign(cross(q1, q2, p2))

	if d1 != d2 && d3 != d4 {
		return true
	}
	switch {
	case d1 == 0 && onSegment(p1, q1, p2):
		return true
	case d2 == 0 && onSegment(p1, q2, p2):
		return true
	case d3 == 0 && onSegment(q1, p1, q2):
		return true
	case d4 == 0 && onSegment(q1, p2, q2):
		return true
	}
	return false
}
