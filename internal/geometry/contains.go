package geometry

import (
	"math"

	"github.com/gogpu/gg"
)

const (
	// flattenTolerance bounds the distance between a curve and the polyline
	// used for edge and stroke distance tests.
	flattenTolerance = 0.01
	onEdgeEps        = 1e-9
)

// contour is one subpath of a path rebuilt as its own gg.Path.
type contour struct {
	path   *gg.Path
	closed bool
}

// contours splits p into its subpaths. A drawing command that follows a
// Close without a MoveTo starts a new subpath at the previous start point.
func contours(p *gg.Path) []contour {
	var (
		out        []contour
		cur        *gg.Path
		closed     bool
		start, pos gg.Point
	)
	flush := func() {
		if cur != nil {
			out = append(out, contour{path: cur, closed: closed})
		}
		cur, closed = nil, false
	}
	begin := func() {
		if cur == nil {
			cur = gg.NewPath()
			cur.MoveTo(pos.X, pos.Y)
			start = pos
		}
	}

	for _, el := range p.Elements() {
		switch e := el.(type) {
		case gg.MoveTo:
			flush()
			pos = e.Point
			begin()
		case gg.LineTo:
			begin()
			cur.LineTo(e.Point.X, e.Point.Y)
			pos = e.Point
		case gg.QuadTo:
			begin()
			cur.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
			pos = e.Point
		case gg.CubicTo:
			begin()
			cur.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
			pos = e.Point
		case gg.Close:
			if cur != nil {
				cur.Close()
				closed = true
				flush()
			}
			pos = start
		}
	}
	flush()
	return out
}

// Region is a path prepared for repeated fill queries. Open subpaths are
// closed, as a fill would.
type Region struct {
	contours []*gg.Path
	bounds   Rect
}

func NewRegion(p *gg.Path) Region {
	r := Region{bounds: Bounds(p)}
	for _, c := range contours(p) {
		path := c.path
		if !c.closed {
			path = path.Clone()
			path.Close()
		}
		r.contours = append(r.contours, path)
	}
	return r
}

// Bounds returns the region's bounding box.
func (r Region) Bounds() Rect {
	return r.bounds
}

// Contains reports whether (x, y) lies in the region under the non-zero
// winding rule.
func (r Region) Contains(x, y float64) bool {
	if !r.bounds.Contains(x, y) {
		return false
	}
	pt := gg.Pt(x, y)
	winding := 0
	for _, c := range r.contours {
		winding += c.Winding(pt)
	}
	return winding != 0
}

// OnEdge reports whether (x, y) lies on the region's outline, including
// the closing segment of open subpaths.
func (r Region) OnEdge(x, y float64) bool {
	if !r.bounds.Contains(x, y) {
		return false
	}
	for _, c := range r.contours {
		if polylineDistance(c.Flatten(flattenTolerance), x, y) <= onEdgeEps {
			return true
		}
	}
	return false
}

// InFill reports whether (x, y) lies in the region p would fill. Points on
// the outline count as inside.
func InFill(p *gg.Path, x, y float64) bool {
	r := NewRegion(p)
	return r.Contains(x, y) || r.OnEdge(x, y)
}

// InStroke reports whether (x, y) lies within width/2 of the outline of p.
// Only explicitly closed subpaths include their closing segment.
func InStroke(p *gg.Path, width, x, y float64) bool {
	half := math.Max(width, 0) / 2
	if half == 0 {
		return false
	}
	for _, c := range contours(p) {
		if polylineDistance(c.path.Flatten(flattenTolerance), x, y) <= half+onEdgeEps {
			return true
		}
	}
	return false
}

// polylineDistance returns the distance from (x, y) to the nearest segment
// of pts. A single point is treated as a dot.
func polylineDistance(pts []gg.Point, x, y float64) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return math.Hypot(x-pts[0].X, y-pts[0].Y)
	}
	d := math.Inf(1)
	for i := 0; i+1 < len(pts); i++ {
		d = math.Min(d, segmentDistance(x, y, pts[i], pts[i+1]))
	}
	return d
}

func segmentDistance(x, y float64, a, b gg.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-a.X, y-a.Y)
	}
	t := ((x-a.X)*dx + (y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(x-(a.X+t*dx), y-(a.Y+t*dy))
}
