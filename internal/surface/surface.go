// Package surface defines the immediate-mode drawing surface a scene paints
// onto, along with the implementations shipped with the module: a raster
// surface over gogpu/gg and a recorder producing Canvas2D draw commands.
package surface

import (
	"image"

	"github.com/gogpu/gg"
)

type Composite int

const (
	SourceOver Composite = iota
	// DestinationOut erases already drawn pixels where the source is opaque.
	DestinationOut
)

func (c Composite) String() string {
	if c == DestinationOut {
		return "destination-out"
	}
	return "source-over"
}

type Font struct {
	Family string  `json:"family"`
	Size   float64 `json:"size"`
}

type TextMetrics struct {
	Width   float64 `json:"width"`
	Ascent  float64 `json:"ascent"`
	Descent float64 `json:"descent"`
}

// Height returns the extent of the text from its top to its lowest descender.
func (m TextMetrics) Height() float64 {
	return m.Ascent + m.Descent
}

// Canvas describes the drawing target a surface is bound to. Custom drawers
// receive it alongside the surface.
type Canvas struct {
	Key    string `json:"key"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Bitmap is a decoded image ready to be drawn. Handle carries
// surface-specific data such as a browser image element.
type Bitmap struct {
	Source string
	Width  int
	Height int
	Image  image.Image
	Handle any
}

// Surface is the primitive drawing API the paint pipeline and hit-tester
// consume. Paths are given in user space and are transformed by the
// current transform when drawn.
type Surface interface {
	Canvas() Canvas

	Identity()
	Scale(sx, sy float64)
	Rotate(angle float64)
	Translate(x, y float64)

	SetAlpha(a float64)
	SetComposite(c Composite)

	Save()
	Restore()
	Clip(p *gg.Path)

	// ClearRect erases the rectangle to transparent.
	ClearRect(x, y, w, h float64)
	Fill(p *gg.Path, color string) error
	Stroke(p *gg.Path, color string, width float64) error
	DrawImage(b Bitmap, x, y, w, h float64) error

	MeasureText(s string, f Font) TextMetrics
	// FillText and StrokeText position text by the top of its em box.
	FillText(s string, x, y float64, f Font, color string) error
	StrokeText(s string, x, y float64, f Font, color string, width float64) error

	// InFill and InStroke test a point against p, both in the same
	// coordinate space, ignoring the current transform.
	InFill(p *gg.Path, x, y float64) bool
	InStroke(p *gg.Path, width, x, y float64) bool
}

// Framer is implemented by surfaces that want to know where a full repaint
// starts and ends.
type Framer interface {
	BeginFrame()
	EndFrame()
}

// Annotator is implemented by surfaces that correlate draw operations with
// the object being painted.
type Annotator interface {
	Annotate(objectID string)
}
