package surface

import (
	"encoding/json"
	"sync"

	"github.com/gogpu/gg"

	"github.com/inamate/canvasflow/internal/geometry"
)

// DrawCommand represents a single drawing operation for a browser to execute.
// The browser receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string         `json:"op"`                    // "clear", "fill", "stroke", "image", "text", "save", "restore", "clip"
	ObjectID    string         `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64      `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand  `json:"path,omitempty"`        // Path data for fill/stroke/clip ops
	Fill        string         `json:"fill,omitempty"`        // Fill color
	Stroke      string         `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64        `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64        `json:"opacity,omitempty"`     // Global alpha
	Composite   string         `json:"composite,omitempty"`   // Only set when not source-over
	Rect        *geometry.Rect `json:"rect,omitempty"`        // Destination for clear/image ops
	ImageURL    string         `json:"imageUrl,omitempty"`    // Image source for lookup
	ImageWidth  float64        `json:"imageWidth,omitempty"`  // Image natural width
	ImageHeight float64        `json:"imageHeight,omitempty"` // Image natural height
	Text        string         `json:"text,omitempty"`
	Font        *Font          `json:"font,omitempty"`
	X           float64        `json:"x,omitempty"`
	Y           float64        `json:"y,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], etc.
type PathCommand []interface{}

// PathCommands converts p into the Canvas2D command form.
func PathCommands(p *gg.Path) []PathCommand {
	elems := p.Elements()
	out := make([]PathCommand, 0, len(elems))
	for _, el := range elems {
		switch e := el.(type) {
		case gg.MoveTo:
			out = append(out, PathCommand{"M", e.Point.X, e.Point.Y})
		case gg.LineTo:
			out = append(out, PathCommand{"L", e.Point.X, e.Point.Y})
		case gg.QuadTo:
			out = append(out, PathCommand{"Q", e.Control.X, e.Control.Y, e.Point.X, e.Point.Y})
		case gg.CubicTo:
			out = append(out, PathCommand{"C", e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y})
		case gg.Close:
			out = append(out, PathCommand{"Z"})
		}
	}
	return out
}

// Recorder is a Surface that compiles drawing calls into a draw command
// buffer instead of producing pixels. Commands are in painter's order
// (back to front). The last complete frame is kept for readers on other
// goroutines.
type Recorder struct {
	canvas Canvas
	fonts  *Fonts

	ctm       geometry.Matrix2D
	alpha     float64
	composite Composite
	objectID  string
	stack     []recorderState
	commands  []DrawCommand

	mu    sync.RWMutex
	frame []DrawCommand
	seq   uint64
}

type recorderState struct {
	ctm       geometry.Matrix2D
	alpha     float64
	composite Composite
}

func NewRecorder(canvas Canvas, fonts *Fonts) *Recorder {
	return &Recorder{
		canvas: canvas,
		fonts:  fonts,
		ctm:    geometry.Identity(),
		alpha:  1,
	}
}

func (r *Recorder) Canvas() Canvas { return r.canvas }

func (r *Recorder) Identity() { r.ctm = geometry.Identity() }

func (r *Recorder) Scale(sx, sy float64) {
	r.ctm = r.ctm.Multiply(geometry.Scale(sx, sy))
}

func (r *Recorder) Rotate(angle float64) {
	r.ctm = r.ctm.Multiply(geometry.Rotate(angle))
}

func (r *Recorder) Translate(x, y float64) {
	r.ctm = r.ctm.Multiply(geometry.Translate(x, y))
}

func (r *Recorder) SetAlpha(a float64)       { r.alpha = min(max(a, 0), 1) }
func (r *Recorder) SetComposite(c Composite) { r.composite = c }

// Annotate tags subsequent commands with the object being painted.
func (r *Recorder) Annotate(objectID string) { r.objectID = objectID }

func (r *Recorder) Save() {
	r.stack = append(r.stack, recorderState{ctm: r.ctm, alpha: r.alpha, composite: r.composite})
	r.emit(DrawCommand{Op: "save"})
}

func (r *Recorder) Restore() {
	if len(r.stack) == 0 {
		return
	}
	st := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.ctm, r.alpha, r.composite = st.ctm, st.alpha, st.composite
	r.emit(DrawCommand{Op: "restore"})
}

func (r *Recorder) Clip(p *gg.Path) {
	r.emit(DrawCommand{Op: "clip", Transform: r.ctm.ToSlice(), Path: PathCommands(p)})
}

func (r *Recorder) ClearRect(x, y, w, h float64) {
	r.emit(DrawCommand{
		Op:        "clear",
		Transform: r.ctm.ToSlice(),
		Rect:      &geometry.Rect{X: x, Y: y, Width: w, Height: h},
	})
}

func (r *Recorder) Fill(p *gg.Path, color string) error {
	if _, err := ParseColor(color); err != nil {
		return err
	}
	r.emit(r.styled(DrawCommand{Op: "fill", Path: PathCommands(p), Fill: color}))
	return nil
}

func (r *Recorder) Stroke(p *gg.Path, color string, width float64) error {
	if _, err := ParseColor(color); err != nil {
		return err
	}
	r.emit(r.styled(DrawCommand{Op: "stroke", Path: PathCommands(p), Stroke: color, StrokeWidth: width}))
	return nil
}

func (r *Recorder) DrawImage(b Bitmap, x, y, w, h float64) error {
	r.emit(r.styled(DrawCommand{
		Op:          "image",
		Rect:        &geometry.Rect{X: x, Y: y, Width: w, Height: h},
		ImageURL:    b.Source,
		ImageWidth:  float64(b.Width),
		ImageHeight: float64(b.Height),
	}))
	return nil
}

func (r *Recorder) MeasureText(s string, f Font) TextMetrics {
	return r.fonts.Measure(s, f)
}

func (r *Recorder) FillText(s string, x, y float64, f Font, color string) error {
	if _, err := ParseColor(color); err != nil {
		return err
	}
	r.emit(r.styled(DrawCommand{Op: "text", Text: s, Font: &f, X: x, Y: y, Fill: color}))
	return nil
}

func (r *Recorder) StrokeText(s string, x, y float64, f Font, color string, width float64) error {
	if _, err := ParseColor(color); err != nil {
		return err
	}
	r.emit(r.styled(DrawCommand{Op: "text", Text: s, Font: &f, X: x, Y: y, Stroke: color, StrokeWidth: width}))
	return nil
}

func (r *Recorder) InFill(p *gg.Path, x, y float64) bool {
	return geometry.InFill(p, x, y)
}

func (r *Recorder) InStroke(p *gg.Path, width, x, y float64) bool {
	return geometry.InStroke(p, width, x, y)
}

// BeginFrame discards the commands of any unfinished frame.
func (r *Recorder) BeginFrame() {
	r.commands = r.commands[:0]
	r.stack = r.stack[:0]
	r.ctm = geometry.Identity()
	r.alpha, r.composite, r.objectID = 1, SourceOver, ""
}

// EndFrame publishes the recorded commands as the current frame.
func (r *Recorder) EndFrame() {
	frame := make([]DrawCommand, len(r.commands))
	copy(frame, r.commands)
	r.mu.Lock()
	r.frame = frame
	r.seq++
	r.mu.Unlock()
}

// Frame returns the last published frame and its sequence number.
func (r *Recorder) Frame() ([]DrawCommand, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frame, r.seq
}

// Pending returns the commands recorded since the last BeginFrame.
func (r *Recorder) Pending() []DrawCommand {
	return r.commands
}

func (r *Recorder) styled(cmd DrawCommand) DrawCommand {
	cmd.Transform = r.ctm.ToSlice()
	cmd.Opacity = r.alpha
	if r.composite != SourceOver {
		cmd.Composite = r.composite.String()
	}
	return cmd
}

func (r *Recorder) emit(cmd DrawCommand) {
	cmd.ObjectID = r.objectID
	r.commands = append(r.commands, cmd)
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
