package engine

import (
	"fmt"

	"github.com/gogpu/gg"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/geometry"
	"github.com/inamate/canvasflow/internal/surface"
)

// hitTest returns the objects whose hit geometry contains the canvas point
// (x, y), in z-order. Erasure objects are never hit, and neither are
// rotated objects other than text. A malformed object aborts the query.
func (p *pipeline) hitTest(s surface.Surface, objs []*document.Object, x, y float64) ([]*document.Object, error) {
	var hits []*document.Object
	for _, o := range sortByZIndex(objs, p.defaults) {
		ok, err := p.hit(s, o, x, y)
		if err != nil {
			return nil, fmt.Errorf("hit test object %q: %w", o.ID, err)
		}
		if ok {
			hits = append(hits, o)
		}
	}
	return hits, nil
}

func (p *pipeline) hit(s surface.Surface, o *document.Object, x, y float64) (bool, error) {
	if o.Shape == nil {
		return false, document.ErrMissingType
	}
	e := p.defaults.Resolve(o)
	if err := checkScale(e); err != nil {
		return false, err
	}
	if e.IsChunk {
		return false, nil
	}
	if e.Rotation != 0 && o.Kind() != document.KindText {
		return false, nil
	}

	path, err := p.hitPath(s, o, e)
	if err != nil {
		return false, err
	}
	lx, ly := objectTransform(e).Invert().TransformPoint(x, y)
	if s.InFill(path, lx, ly) {
		return true, nil
	}
	return e.StrokeWidth > 0 && s.InStroke(path, e.StrokeWidth, lx, ly), nil
}

// hitPath builds o's hit geometry in its own coordinates, before scale,
// rotation and translate.
func (p *pipeline) hitPath(s surface.Surface, o *document.Object, e document.Effective) (*gg.Path, error) {
	switch shape := o.Shape.(type) {
	case document.Circle:
		return geometry.Ellipse(e.X, e.Y, e.Width, e.Height), nil

	case document.Polygon:
		if len(shape.Points) == 0 {
			return nil, document.ErrMissingPoints
		}
		return polygonPath(shape), nil

	case document.Path:
		d, ok := p.defaults.PathData(shape)
		if !ok {
			return nil, document.ErrMissingPath
		}
		bounds, _ := p.resolver.PathBounds(d)
		return bounds.Path(), nil

	case document.Line:
		if !validEndpoints(shape) {
			return nil, document.ErrMissingEndpoints
		}
		return geometry.RectFromPoints(shape.From.X, shape.From.Y, shape.To.X, shape.To.Y).Path(), nil

	case document.Text:
		content, ok := p.defaults.TextContent(shape)
		if !ok {
			return nil, document.ErrMissingText
		}
		m := s.MeasureText(content, surface.Font{Family: e.FontFamily, Size: e.FontSize})
		return geometry.Rect{X: e.X, Y: e.Y, Width: m.Width, Height: m.Height()}.Path(), nil

	case document.Image:
		w, h := e.Width, e.Height
		if b, ok := p.bitmaps.Get(o.ID); ok {
			if o.Width == nil {
				w = float64(b.Width)
			}
			if o.Height == nil {
				h = float64(b.Height)
			}
		}
		return geometry.Rect{X: e.X, Y: e.Y, Width: w, Height: h}.Path(), nil
	}
	return geometry.Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}.Path(), nil
}
