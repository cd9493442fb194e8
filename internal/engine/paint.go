package engine

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/geometry"
	"github.com/inamate/canvasflow/internal/surface"
)

// Measurement is geometry learned while painting an object. Only the
// fields that were measured are set.
type Measurement struct {
	ID     document.ID
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64
}

// BitmapSource looks up the decoded image of an image object.
type BitmapSource interface {
	Get(id document.ID) (surface.Bitmap, bool)
}

// pipeline paints and hit-tests a scene snapshot against a surface. It holds
// no state between passes.
type pipeline struct {
	defaults document.Defaults
	bitmaps  BitmapSource
	resolver geometry.Resolver
	drawers  map[string]document.Drawer
	log      *slog.Logger
}

// paint clears s and draws every object in z-order, then the chunk overlay.
// It returns the measurements to merge back into the store.
func (p *pipeline) paint(s surface.Surface, objs []*document.Object, chunks []Chunk) ([]Measurement, error) {
	if f, ok := s.(surface.Framer); ok {
		f.BeginFrame()
	}
	annotate := func(string) {}
	if a, ok := s.(surface.Annotator); ok {
		annotate = a.Annotate
	}

	canvas := s.Canvas()
	s.Identity()
	s.SetAlpha(1)
	s.SetComposite(surface.SourceOver)
	s.ClearRect(0, 0, float64(canvas.Width), float64(canvas.Height))

	var measured []Measurement
	for _, o := range sortByZIndex(objs, p.defaults) {
		annotate(string(o.ID))
		s.Save()
		m, err := p.paintObject(s, o)
		s.Restore()
		if err != nil {
			return nil, fmt.Errorf("paint object %q: %w", o.ID, err)
		}
		if m != nil {
			measured = append(measured, *m)
		}
	}
	annotate("")

	s.Identity()
	s.SetAlpha(1)
	for _, c := range chunks {
		if err := c.erase(s); err != nil {
			return nil, fmt.Errorf("erase chunk %q: %w", c.ID, err)
		}
	}

	if f, ok := s.(surface.Framer); ok {
		f.EndFrame()
	}
	p.log.Debug("painted scene", "canvas", canvas.Key, "objects", len(objs), "chunks", len(chunks))
	return measured, nil
}

func (p *pipeline) paintObject(s surface.Surface, o *document.Object) (*Measurement, error) {
	if o.Shape == nil {
		return nil, document.ErrMissingType
	}
	e := p.defaults.Resolve(o)
	if err := checkScale(e); err != nil {
		return nil, err
	}
	applyBase(s, e)
	s.SetAlpha(1)
	s.SetComposite(surface.SourceOver)

	if e.IsChunk {
		return p.paintChunk(s, o, e)
	}

	s.SetAlpha(e.Opacity)
	applyPlacement(s, e)

	switch shape := o.Shape.(type) {
	case document.Text:
		content, ok := p.defaults.TextContent(shape)
		if !ok {
			return nil, document.ErrMissingText
		}
		font := surface.Font{Family: e.FontFamily, Size: e.FontSize}
		if err := s.FillText(content, e.X, e.Y, font, e.Fill); err != nil {
			return nil, err
		}
		if e.Stroked() {
			return nil, s.StrokeText(content, e.X, e.Y, font, e.StrokeFill, e.StrokeWidth)
		}
		return nil, nil

	case document.Image:
		b, ok := p.bitmaps.Get(o.ID)
		if !ok {
			return nil, nil
		}
		m := &Measurement{ID: o.ID}
		w, h := e.Width, e.Height
		if o.Width == nil {
			w = float64(b.Width)
			m.Width = &w
		}
		if o.Height == nil {
			h = float64(b.Height)
			m.Height = &h
		}
		if err := s.DrawImage(b, e.X, e.Y, w, h); err != nil {
			return nil, err
		}
		if m.Width == nil && m.Height == nil {
			return nil, nil
		}
		return m, nil

	case document.Path:
		d, ok := p.defaults.PathData(shape)
		if !ok {
			return nil, document.ErrMissingPath
		}
		path := p.parsePath(o.ID, d)
		if err := p.fillAndStroke(s, path, e); err != nil {
			return nil, err
		}
		bounds, err := p.resolver.PathBounds(d)
		if !measurable(bounds, err) {
			return nil, nil
		}
		return &Measurement{
			ID:     o.ID,
			X:      &bounds.X,
			Y:      &bounds.Y,
			Width:  &bounds.Width,
			Height: &bounds.Height,
		}, nil

	case document.Polygon:
		if len(shape.Points) == 0 {
			return nil, document.ErrMissingPoints
		}
		return nil, p.fillAndStroke(s, polygonPath(shape), e)

	case document.Rectangle:
		return nil, p.fillAndStroke(s, geometry.RoundedRect(e.X, e.Y, e.Width, e.Height, e.BorderRadius), e)

	case document.Triangle:
		return nil, p.fillAndStroke(s, geometry.Triangle(e.X, e.Y, e.Width, e.Height, e.BorderRadius), e)

	case document.Circle:
		return nil, p.fillAndStroke(s, geometry.Ellipse(e.X, e.Y, e.Width, e.Height), e)

	case document.Line:
		if !validEndpoints(shape) {
			return nil, document.ErrMissingEndpoints
		}
		width := e.StrokeWidth
		if width <= 0 {
			width = 1
		}
		return nil, s.Stroke(geometry.Segment(shape.From.X, shape.From.Y, shape.To.X, shape.To.Y), e.StrokeFill, width)

	case document.Custom:
		d, err := p.drawer(shape)
		if err != nil {
			return nil, err
		}
		props := o.Clone()
		props.Shape = document.Custom{Name: shape.Name}
		return nil, d.Draw(s, s.Canvas(), props)
	}
	return nil, fmt.Errorf("%w: %q", document.ErrInvalidType, o.Kind())
}

// paintChunk paints o as an erasure region. Chunks ignore rotation,
// translate and opacity.
func (p *pipeline) paintChunk(s surface.Surface, o *document.Object, e document.Effective) (*Measurement, error) {
	switch shape := o.Shape.(type) {
	case document.Circle:
		s.SetComposite(surface.DestinationOut)
		return nil, s.Fill(geometry.Ellipse(e.X, e.Y, e.Width, e.Height), "black")
	case document.Rectangle:
		s.ClearRect(e.X, e.Y, e.Width, e.Height)
		return nil, nil
	case document.Path:
		d, ok := p.defaults.PathData(shape)
		if !ok {
			return nil, document.ErrMissingPath
		}
		canvas := s.Canvas()
		s.Save()
		s.Clip(p.parsePath(o.ID, d))
		s.Identity()
		s.ClearRect(0, 0, float64(canvas.Width), float64(canvas.Height))
		s.Restore()
		return nil, nil
	}
	return nil, document.ErrInvalidChunkType
}

func (p *pipeline) fillAndStroke(s surface.Surface, path *gg.Path, e document.Effective) error {
	if err := s.Fill(path, e.Fill); err != nil {
		return err
	}
	if e.Stroked() {
		return s.Stroke(path, e.StrokeFill, e.StrokeWidth)
	}
	return nil
}

// parsePath parses path data. Malformed data draws as much of the path as
// could be read.
// measurable reports whether path bounds carry geometry worth backfilling.
// Data that fails to parse before drawing anything measures nothing.
func measurable(bounds geometry.Rect, err error) bool {
	return err == nil || bounds != (geometry.Rect{})
}

func (p *pipeline) parsePath(id document.ID, d string) *gg.Path {
	path, err := geometry.ParsePathData(d)
	if err != nil {
		p.log.Warn("malformed path data", "object", id, "error", err)
	}
	return path
}

func (p *pipeline) drawer(c document.Custom) (document.Drawer, error) {
	if c.Draw != nil {
		return c.Draw, nil
	}
	if c.Name == "" {
		return nil, document.ErrMissingDrawCallback
	}
	d, ok := p.drawers[c.Name]
	if !ok {
		return nil, fmt.Errorf("%w: no drawer named %q", document.ErrInvalidDrawCallback, c.Name)
	}
	return d, nil
}

func polygonPath(shape document.Polygon) *gg.Path {
	pts := make([]gg.Point, len(shape.Points))
	for i, pt := range shape.Points {
		pts[i] = gg.Pt(pt.X, pt.Y)
	}
	return geometry.Polygon(pts, 0, 0)
}

// validEndpoints reports whether both line endpoints are present with
// positive coordinates.
func validEndpoints(l document.Line) bool {
	ok := func(p *document.Point) bool {
		return p != nil && p.X > 0 && p.Y > 0
	}
	return ok(l.From) && ok(l.To)
}
