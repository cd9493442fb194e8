package geometry

import (
	"math"

	"github.com/gogpu/gg"
)

// RoundedRect traces a rectangle whose corners are rounded with arcTo
// semantics. A radius of 0 gives sharp corners.
func RoundedRect(x, y, w, h, r float64) *gg.Path {
	p := gg.NewPath()
	p.MoveTo(x+r, y)
	p.LineTo(x+w-r, y)
	ArcTo(p, x+w, y, x+w, y+r, r)
	p.LineTo(x+w, y+h-r)
	ArcTo(p, x+w, y+h, x+w-r, y+h, r)
	p.LineTo(x+r, y+h)
	ArcTo(p, x, y+h, x, y+h-r, r)
	p.LineTo(x, y+r)
	ArcTo(p, x, y, x+r, y, r)
	p.Close()
	return p
}

// Triangle traces the right triangle (x,y), (x+w,y), (x+w,y+h) with
// corners rounded by r.
func Triangle(x, y, w, h, r float64) *gg.Path {
	p := gg.NewPath()
	p.MoveTo(x+r, y)
	ArcTo(p, x+w, y, x+w, y+h, r)
	ArcTo(p, x+w, y+h, x, y+h, r)
	p.LineTo(x, y+r)
	ArcTo(p, x, y, x+r, y, r)
	p.Close()
	return p
}

// Ellipse traces an ellipse centred at (cx, cy) inscribed in a w×h box.
func Ellipse(cx, cy, w, h float64) *gg.Path {
	p := gg.NewPath()
	p.Ellipse(cx, cy, math.Abs(w)/2, math.Abs(h)/2)
	return p
}

// Circle traces a circle of the given radius.
func Circle(cx, cy, r float64) *gg.Path {
	p := gg.NewPath()
	p.Circle(cx, cy, math.Abs(r))
	return p
}

// Polygon traces a closed contour through pts, offset by (dx, dy).
func Polygon(pts []gg.Point, dx, dy float64) *gg.Path {
	p := gg.NewPath()
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X+dx, pt.Y+dy)
			continue
		}
		p.LineTo(pt.X+dx, pt.Y+dy)
	}
	if len(pts) > 0 {
		p.Close()
	}
	return p
}

// Segment traces an open line from (x0, y0) to (x1, y1).
func Segment(x0, y0, x1, y1 float64) *gg.Path {
	p := gg.NewPath()
	p.MoveTo(x0, y0)
	p.LineTo(x1, y1)
	return p
}

// Bounds returns the tight bounding box of p.
func Bounds(p *gg.Path) Rect {
	return RectFromGG(p.BoundingBox())
}
