package scape

import "math"

type Point struct {
	X, Y float64
}

type Segment struct {
	P1, P2 Point
}

// lineIntersection intersects the infinite lines through a and b. Parallel
// lines, including two vertical ones, do not intersect.
func lineIntersection(a, b Segment) (Point, bool) {
	ax, ay := a.P2.X-a.P1.X, a.P2.Y-a.P1.Y
	bx, by := b.P2.X-b.P1.X, b.P2.Y-b.P1.Y

	switch {
	case ax == 0 && bx == 0:
		return Point{}, false
	case ax == 0:
		k := by / bx
		m := b.P1.Y - k*b.P1.X
		return Point{X: a.P1.X, Y: k*a.P1.X + m}, true
	case bx == 0:
		k := ay / ax
		m := a.P1.Y - k*a.P1.X
		return Point{X: b.P1.X, Y: k*b.P1.X + m}, true
	}

	ka, kb := ay/ax, by/bx
	if ka == kb {
		return Point{}, false
	}
	ma := a.P1.Y - ka*a.P1.X
	mb := b.P1.Y - kb*b.P1.X
	x := (ma - mb) / (kb - ka)
	return Point{X: x, Y: ka*x + ma}, true
}

// contains reports whether p, already known to lie on the line through s,
// falls within the segment.
func (s Segment) contains(p Point) bool {
	if s.P1.X != s.P2.X {
		return p.X >= math.Min(s.P1.X, s.P2.X) && p.X <= math.Max(s.P1.X, s.P2.X)
	}
	return p.Y >= math.Min(s.P1.Y, s.P2.Y) && p.Y <= math.Max(s.P1.Y, s.P2.Y)
}

// Intersect returns the point where segments a and b cross.
func Intersect(a, b Segment) (Point, bool) {
	p, ok := lineIntersection(a, b)
	if !ok || !a.contains(p) || !b.contains(p) {
		return Point{}, false
	}
	return p, true
}
