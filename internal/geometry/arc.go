package geometry

import (
	"math"

	"github.com/gogpu/gg"
)

// ArcTo appends a Canvas2D arcTo to p: a straight line from the current
// point towards (x1, y1), then a circular arc of radius r tangent to both
// the (current, p1) and (p1, p2) lines. Degenerate input collapses to a
// straight line to (x1, y1). The path must have a current point.
func ArcTo(p *gg.Path, x1, y1, x2, y2, r float64) {
	if !p.HasCurrentPoint() {
		p.MoveTo(x1, y1)
		return
	}
	p0 := p.CurrentPoint()
	r = math.Abs(r)

	v1x, v1y := p0.X-x1, p0.Y-y1
	v2x, v2y := x2-x1, y2-y1
	l1 := math.Hypot(v1x, v1y)
	l2 := math.Hypot(v2x, v2y)
	cross := v1x*v2y - v1y*v2x
	if r == 0 || l1 == 0 || l2 == 0 || math.Abs(cross) < 1e-12 {
		p.LineTo(x1, y1)
		return
	}

	cos := (v1x*v2x + v1y*v2y) / (l1 * l2)
	cos = math.Max(-1, math.Min(1, cos))
	angle := math.Acos(cos) // interior angle at p1
	dist := r / math.Tan(angle/2)

	// tangent points
	t1x, t1y := x1+v1x/l1*dist, y1+v1y/l1*dist
	t2x, t2y := x1+v2x/l2*dist, y1+v2y/l2*dist

	// the center sits on the bisector, r/sin(angle/2) away from p1
	bx, by := v1x/l1+v2x/l2, v1y/l1+v2y/l2
	bl := math.Hypot(bx, by)
	cd := r / math.Sin(angle/2)
	cx, cy := x1+bx/bl*cd, y1+by/bl*cd

	p.LineTo(t1x, t1y)
	a0 := math.Atan2(t1y-cy, t1x-cx)
	a1 := math.Atan2(t2y-cy, t2x-cx)
	sweep := a1 - a0
	for sweep > math.Pi {
		sweep -= 2 * math.Pi
	}
	for sweep < -math.Pi {
		sweep += 2 * math.Pi
	}
	appendArc(p, cx, cy, r, r, 0, a0, sweep)
}

// SVGArc appends an SVG elliptical arc from the current point (x0, y0) to
// (x, y). phi is the x-axis rotation in degrees.
func SVGArc(p *gg.Path, x0, y0, rx, ry, phi float64, large, sweep bool, x, y float64) {
	if x0 == x && y0 == y {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		p.LineTo(x, y)
		return
	}

	rad := phi * math.Pi / 180
	sinPhi, cosPhi := math.Sin(rad), math.Cos(rad)

	// endpoint to center parameterisation, SVG 1.1 appendix F.6.5
	dx, dy := (x0-x)/2, (y0-y)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	lambda := (x1p*x1p)/(rx*rx) + (y1p*y1p)/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx

	cx := cosPhi*cxp - sinPhi*cyp + (x0+x)/2
	cy := sinPhi*cxp + cosPhi*cyp + (y0+y)/2

	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta := math.Atan2(uy, ux)
	delta := math.Atan2(vy, vx) - theta
	if sweep && delta < 0 {
		delta += 2 * math.Pi
	} else if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	}

	appendArc(p, cx, cy, rx, ry, rad, theta, delta)
	// land exactly on the requested endpoint
	p.LineTo(x, y)
}

// appendArc adds an elliptical arc as cubic segments of at most 90 degrees.
// The arc starts at angle start and spans sweep radians (signed).
func appendArc(p *gg.Path, cx, cy, rx, ry, rot, start, sweep float64) {
	segs := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2)))
	if segs == 0 {
		return
	}
	step := sweep / float64(segs)
	k := 4.0 / 3.0 * math.Tan(step/4)
	sinR, cosR := math.Sin(rot), math.Cos(rot)

	point := func(ex, ey float64) (float64, float64) {
		return cx + cosR*ex - sinR*ey, cy + sinR*ex + cosR*ey
	}

	a := start
	for range segs {
		b := a + step
		cosA, sinA := math.Cos(a), math.Sin(a)
		cosB, sinB := math.Cos(b), math.Sin(b)

		c1x, c1y := point(rx*(cosA-k*sinA), ry*(sinA+k*cosA))
		c2x, c2y := point(rx*(cosB+k*sinB), ry*(sinB-k*cosB))
		ex, ey := point(rx*cosB, ry*sinB)
		p.CubicTo(c1x, c1y, c2x, c2y, ex, ey)
		a = b
	}
}
