package document

import "errors"

// ID identifies an object within a scene. Numeric identifiers from the wire
// form are kept as their decimal text, so "0" is a valid id, and 1 and "1"
// name the same object. The empty ID means "absent".
type ID string

type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindTriangle  Kind = "triangle"
	KindLine      Kind = "line"
	KindPolygon   Kind = "polygon"
	KindPath      Kind = "path"
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindCustom    Kind = "custom"
)

// Valid reports whether k names one of the known object types.
func (k Kind) Valid() bool {
	switch k {
	case KindRectangle, KindCircle, KindTriangle, KindLine, KindPolygon,
		KindPath, KindText, KindImage, KindCustom:
		return true
	}
	return false
}

// UsesTranslate reports whether moving an object of this kind adjusts its
// translate offset instead of its x/y origin.
func (k Kind) UsesTranslate() bool {
	return k == KindLine || k == KindPath || k == KindPolygon
}

// Chunkable reports whether objects of this kind may be erasure regions.
func (k Kind) Chunkable() bool {
	return k == KindCircle || k == KindPath || k == KindRectangle
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	Fill  *string  `json:"fill,omitempty"`
	Width *float64 `json:"width,omitempty"`
}

type Font struct {
	Family *string  `json:"family,omitempty"`
	Size   *float64 `json:"size,omitempty"`
}

// Props holds the optional style and transform fields shared by every
// object type. A nil field is unset and resolves through Defaults.
type Props struct {
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Fill         *string  `json:"fill,omitempty"`
	Stroke       *Stroke  `json:"stroke,omitempty"`
	Font         *Font    `json:"font,omitempty"`
	BorderRadius *float64 `json:"borderRadius,omitempty"`
	Rotation     *float64 `json:"rotation,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	ZIndex       *float64 `json:"zIndex,omitempty"`
	Translate    *Point   `json:"translate,omitempty"`
	Scale        *float64 `json:"scale,omitempty"`
	IsChunk      *bool    `json:"isChunk,omitempty"`
}

// Shape is the type-specific part of an object. Each implementation carries
// the data its type requires.
type Shape interface {
	Kind() Kind
}

type Rectangle struct{}

type Circle struct{}

type Triangle struct{}

type Line struct {
	From *Point
	To   *Point
}

type Polygon struct {
	Points []Point
}

type Path struct {
	D *string
}

type Text struct {
	Content *string
}

type Image struct {
	URL string
}

// Custom objects delegate painting to a Drawer. Name is the drawer's
// registered name when the object arrived through the wire form.
type Custom struct {
	Draw Drawer
	Name string
}

func (Rectangle) Kind() Kind { return KindRectangle }
func (Circle) Kind() Kind    { return KindCircle }
func (Triangle) Kind() Kind  { return KindTriangle }
func (Line) Kind() Kind      { return KindLine }
func (Polygon) Kind() Kind   { return KindPolygon }
func (Path) Kind() Kind      { return KindPath }
func (Text) Kind() Kind      { return KindText }
func (Image) Kind() Kind     { return KindImage }
func (Custom) Kind() Kind    { return KindCustom }

// Object is one scene object: identity, type-specific shape and the shared
// optional properties.
type Object struct {
	ID ID
	// NumericID is set when the record carried its id as a JSON number.
	NumericID bool
	Shape     Shape
	Props
}

// Ref returns the object's identifier in its wire form.
func (o *Object) Ref() Ref {
	return Ref{ID: o.ID, Numeric: o.NumericID}
}

// Kind returns the object's type, or "" when no shape is set.
func (o *Object) Kind() Kind {
	if o == nil || o.Shape == nil {
		return ""
	}
	return o.Shape.Kind()
}

// Clone returns a deep copy of o. Drawers are shared.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	return &Object{
		ID:        o.ID,
		NumericID: o.NumericID,
		Shape:     cloneShape(o.Shape),
		Props:     o.Props.clone(),
	}
}

func (p Props) clone() Props {
	out := Props{
		X:            clonePtr(p.X),
		Y:            clonePtr(p.Y),
		Width:        clonePtr(p.Width),
		Height:       clonePtr(p.Height),
		Fill:         clonePtr(p.Fill),
		BorderRadius: clonePtr(p.BorderRadius),
		Rotation:     clonePtr(p.Rotation),
		Opacity:      clonePtr(p.Opacity),
		ZIndex:       clonePtr(p.ZIndex),
		Translate:    clonePtr(p.Translate),
		Scale:        clonePtr(p.Scale),
		IsChunk:      clonePtr(p.IsChunk),
	}
	if p.Stroke != nil {
		out.Stroke = &Stroke{Fill: clonePtr(p.Stroke.Fill), Width: clonePtr(p.Stroke.Width)}
	}
	if p.Font != nil {
		out.Font = &Font{Family: clonePtr(p.Font.Family), Size: clonePtr(p.Font.Size)}
	}
	return out
}

func cloneShape(s Shape) Shape {
	switch v := s.(type) {
	case Line:
		return Line{From: clonePtr(v.From), To: clonePtr(v.To)}
	case Polygon:
		if v.Points == nil {
			return Polygon{}
		}
		return Polygon{Points: append([]Point(nil), v.Points...)}
	case Path:
		return Path{D: clonePtr(v.D)}
	case Text:
		return Text{Content: clonePtr(v.Content)}
	default:
		return s
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Patch is a partial update. ID and Type are only present so that attempts
// to change them can be rejected. Variant fields that do not match the
// target object's type are ignored.
type Patch struct {
	ID   *ID
	Type *Kind
	Props

	From     *Point
	To       *Point
	Points   []Point
	Path     *string
	Text     *string
	URL      *string
	Draw     Drawer
	DrawName *string
}

// Apply merges every valid field of p into o. Attempts to change the id or
// type are reported after the other fields have been applied.
func (p *Patch) Apply(o *Object) error {
	p.applyProps(&o.Props)

	switch s := o.Shape.(type) {
	case Line:
		if p.From != nil {
			s.From = clonePtr(p.From)
		}
		if p.To != nil {
			s.To = clonePtr(p.To)
		}
		o.Shape = s
	case Polygon:
		if p.Points != nil {
			s.Points = append([]Point(nil), p.Points...)
		}
		o.Shape = s
	case Path:
		if p.Path != nil {
			s.D = clonePtr(p.Path)
		}
		o.Shape = s
	case Text:
		if p.Text != nil {
			s.Content = clonePtr(p.Text)
		}
		o.Shape = s
	case Image:
		if p.URL != nil {
			s.URL = *p.URL
		}
		o.Shape = s
	case Custom:
		if p.Draw != nil {
			s.Draw = p.Draw
			s.Name = ""
		}
		if p.DrawName != nil {
			s.Draw = nil
			s.Name = *p.DrawName
		}
		o.Shape = s
	}

	var errs []error
	if p.ID != nil {
		errs = append(errs, ErrIdentifierImmutable)
	}
	if p.Type != nil {
		errs = append(errs, ErrTypeImmutable)
	}
	return errors.Join(errs...)
}

func (p *Patch) applyProps(dst *Props) {
	src := p.Props.clone()
	set := func(dst **float64, v *float64) {
		if v != nil {
			*dst = v
		}
	}
	set(&dst.X, src.X)
	set(&dst.Y, src.Y)
	set(&dst.Width, src.Width)
	set(&dst.Height, src.Height)
	set(&dst.BorderRadius, src.BorderRadius)
	set(&dst.Rotation, src.Rotation)
	set(&dst.Opacity, src.Opacity)
	set(&dst.ZIndex, src.ZIndex)
	set(&dst.Scale, src.Scale)
	if src.Fill != nil {
		dst.Fill = src.Fill
	}
	if src.Stroke != nil {
		dst.Stroke = src.Stroke
	}
	if src.Font != nil {
		dst.Font = src.Font
	}
	if src.Translate != nil {
		dst.Translate = src.Translate
	}
	if src.IsChunk != nil {
		dst.IsChunk = src.IsChunk
	}
}

// ChangesURL reports whether applying p to o would change the image url.
func (p *Patch) ChangesURL(o *Object) bool {
	img, ok := o.Shape.(Image)
	return ok && p.URL != nil && *p.URL != img.URL
}

// ChangesPath reports whether p carries path data for a path object.
func (p *Patch) ChangesPath(o *Object) bool {
	_, ok := o.Shape.(Path)
	return ok && p.Path != nil
}
