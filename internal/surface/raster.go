package surface

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/inamate/canvasflow/internal/geometry"
)

// Raster is a Surface that renders into an in-memory pixmap with gogpu/gg.
// gg has no destination-out blending, so erasure (ClearRect and fills
// under DestinationOut) is applied to the pixmap directly, honouring the
// active clip.
type Raster struct {
	dc     *gg.Context
	pm     *gg.Pixmap
	canvas Canvas
	fonts  *Fonts

	alpha     float64
	composite Composite
	clips     []geometry.Region // device space
	stack     []rasterState
}

type rasterState struct {
	alpha     float64
	composite Composite
	clips     int
}

// NewRaster creates a transparent width×height raster surface.
func NewRaster(canvas Canvas, fonts *Fonts) *Raster {
	pm := gg.NewPixmap(canvas.Width, canvas.Height)
	return &Raster{
		dc:     gg.NewContext(canvas.Width, canvas.Height, gg.WithPixmap(pm)),
		pm:     pm,
		canvas: canvas,
		fonts:  fonts,
		alpha:  1,
	}
}

func (r *Raster) Canvas() Canvas { return r.canvas }

func (r *Raster) Identity()              { r.dc.Identity() }
func (r *Raster) Scale(sx, sy float64)   { r.dc.Scale(sx, sy) }
func (r *Raster) Rotate(angle float64)   { r.dc.Rotate(angle) }
func (r *Raster) Translate(x, y float64) { r.dc.Translate(x, y) }

func (r *Raster) SetAlpha(a float64) {
	r.alpha = min(max(a, 0), 1)
}

func (r *Raster) SetComposite(c Composite) {
	r.composite = c
}

func (r *Raster) Save() {
	r.dc.Push()
	r.stack = append(r.stack, rasterState{alpha: r.alpha, composite: r.composite, clips: len(r.clips)})
}

func (r *Raster) Restore() {
	if len(r.stack) == 0 {
		return
	}
	st := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.dc.Pop()
	r.alpha, r.composite = st.alpha, st.composite
	r.clips = r.clips[:st.clips]
}

func (r *Raster) Clip(p *gg.Path) {
	r.clips = append(r.clips, geometry.NewRegion(p.Transform(r.dc.GetTransform())))
	r.trace(p)
	r.dc.Clip()
}

// ClearRect erases the rectangle regardless of alpha and composite mode.
func (r *Raster) ClearRect(x, y, w, h float64) {
	if m := r.dc.GetTransform(); len(r.clips) == 0 && m.IsTranslation() {
		r.clearDeviceRect(x+m.C, y+m.F, w, h)
		return
	}
	rect := gg.NewPath()
	rect.Rectangle(x, y, w, h)
	r.erase(rect, 1)
}

func (r *Raster) Fill(p *gg.Path, color string) error {
	c, err := ParseColor(color)
	if err != nil {
		return err
	}
	if r.composite == DestinationOut {
		r.erase(p, c.A*r.alpha)
		return nil
	}
	if c.A == 0 || r.alpha == 0 {
		return nil
	}
	r.dc.SetRGBA(c.R, c.G, c.B, c.A*r.alpha)
	r.trace(p)
	if err := r.dc.Fill(); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	return nil
}

func (r *Raster) Stroke(p *gg.Path, color string, width float64) error {
	c, err := ParseColor(color)
	if err != nil {
		return err
	}
	if width <= 0 || c.A == 0 || r.alpha == 0 {
		return nil
	}
	r.dc.SetRGBA(c.R, c.G, c.B, c.A*r.alpha)
	r.dc.SetLineWidth(width)
	r.trace(p)
	if err := r.dc.Stroke(); err != nil {
		return fmt.Errorf("stroke: %w", err)
	}
	return nil
}

func (r *Raster) DrawImage(b Bitmap, x, y, w, h float64) error {
	if b.Image == nil {
		return fmt.Errorf("draw image %q: no decoded image", b.Source)
	}
	if r.alpha == 0 || w == 0 || h == 0 {
		return nil
	}
	r.dc.DrawImageEx(gg.ImageBufFromImage(b.Image), gg.DrawImageOptions{
		X:         x,
		Y:         y,
		DstWidth:  w,
		DstHeight: h,
		Opacity:   r.alpha,
	})
	return nil
}

func (r *Raster) MeasureText(s string, f Font) TextMetrics {
	return r.fonts.Measure(s, f)
}

func (r *Raster) FillText(s string, x, y float64, f Font, color string) error {
	p, err := r.fonts.TextPath(s, x, y, f)
	if err != nil {
		return r.drawString(s, x, y, f, color)
	}
	return r.Fill(p, color)
}

func (r *Raster) StrokeText(s string, x, y float64, f Font, color string, width float64) error {
	p, err := r.fonts.TextPath(s, x, y, f)
	if err != nil {
		return fmt.Errorf("stroke text: %w", err)
	}
	return r.Stroke(p, color, width)
}

// drawString is the fallback for fonts without extractable outlines. gg
// draws strings untransformed, so only the origin follows the transform.
func (r *Raster) drawString(s string, x, y float64, f Font, color string) error {
	c, err := ParseColor(color)
	if err != nil {
		return err
	}
	face := r.fonts.Face(f)
	dx, dy := r.dc.TransformPoint(x, y+face.Metrics().Ascent)
	r.dc.SetFont(face)
	r.dc.SetRGBA(c.R, c.G, c.B, c.A*r.alpha)
	r.dc.DrawString(s, dx, dy)
	return nil
}

func (r *Raster) InFill(p *gg.Path, x, y float64) bool {
	return geometry.InFill(p, x, y)
}

func (r *Raster) InStroke(p *gg.Path, width, x, y float64) bool {
	return geometry.InStroke(p, width, x, y)
}

// Image returns the current pixels.
func (r *Raster) Image() image.Image {
	return r.pm.ToImage()
}

// Pixel returns the colour at (x, y).
func (r *Raster) Pixel(x, y int) gg.RGBA {
	return r.pm.GetPixel(x, y)
}

// EncodePNG writes the current pixels as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return r.dc.EncodePNG(w)
}

// trace replays p into the context's current path. The context applies the
// current transform as points are added.
func (r *Raster) trace(p *gg.Path) {
	r.dc.ClearPath()
	for _, el := range p.Elements() {
		switch e := el.(type) {
		case gg.MoveTo:
			r.dc.MoveTo(e.Point.X, e.Point.Y)
		case gg.LineTo:
			r.dc.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			r.dc.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		case gg.CubicTo:
			r.dc.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
		case gg.Close:
			r.dc.ClosePath()
		}
	}
}

// erase scales every pixel whose centre lies inside p (and inside the
// active clip) towards transparent by amount.
func (r *Raster) erase(p *gg.Path, amount float64) {
	if amount <= 0 {
		return
	}
	region := geometry.NewRegion(p.Transform(r.dc.GetTransform()))
	b := region.Bounds()
	x0 := max(int(math.Floor(b.X)), 0)
	y0 := max(int(math.Floor(b.Y)), 0)
	x1 := min(int(math.Ceil(b.X+b.Width)), r.pm.Width())
	y1 := min(int(math.Ceil(b.Y+b.Height)), r.pm.Height())

	keep := 1 - min(amount, 1)
	data := r.pm.Data()
	stride := r.pm.Width() * 4
	for py := y0; py < y1; py++ {
		cy := float64(py) + 0.5
		for px := x0; px < x1; px++ {
			cx := float64(px) + 0.5
			if !region.Contains(cx, cy) || !r.clipped(cx, cy) {
				continue
			}
			i := py*stride + px*4
			for k := range 4 {
				data[i+k] = uint8(math.Round(float64(data[i+k]) * keep))
			}
		}
	}
}

// clearDeviceRect zeroes every pixel whose centre lies in the rectangle.
func (r *Raster) clearDeviceRect(x, y, w, h float64) {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	x0 := max(int(math.Ceil(x-0.5)), 0)
	y0 := max(int(math.Ceil(y-0.5)), 0)
	x1 := min(int(math.Floor(x+w-0.5))+1, r.pm.Width())
	y1 := min(int(math.Floor(y+h-0.5))+1, r.pm.Height())
	if x0 >= x1 || y0 >= y1 {
		return
	}
	data := r.pm.Data()
	stride := r.pm.Width() * 4
	for py := y0; py < y1; py++ {
		clear(data[py*stride+x0*4 : py*stride+x1*4])
	}
}

func (r *Raster) clipped(x, y float64) bool {
	for _, c := range r.clips {
		if !c.Contains(x, y) {
			return false
		}
	}
	return true
}
