package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type StrokeDefaults struct {
	Fill  string  `json:"fill" yaml:"fill" toml:"fill"`
	Width float64 `json:"width" yaml:"width" toml:"width"`
}

type FontDefaults struct {
	Family string  `json:"family" yaml:"family" toml:"family"`
	Size   float64 `json:"size" yaml:"size" toml:"size"`
}

// Defaults is the fallback value registry of one scene. It is fixed once the
// scene is constructed.
type Defaults struct {
	X            float64        `json:"x" yaml:"x" toml:"x"`
	Y            float64        `json:"y" yaml:"y" toml:"y"`
	Width        float64        `json:"width" yaml:"width" toml:"width"`
	Height       float64        `json:"height" yaml:"height" toml:"height"`
	Fill         string         `json:"fill" yaml:"fill" toml:"fill"`
	Stroke       StrokeDefaults `json:"stroke" yaml:"stroke" toml:"stroke"`
	Font         FontDefaults   `json:"font" yaml:"font" toml:"font"`
	BorderRadius float64        `json:"borderRadius" yaml:"borderRadius" toml:"borderRadius"`
	Rotation     float64        `json:"rotation" yaml:"rotation" toml:"rotation"`
	Opacity      float64        `json:"opacity" yaml:"opacity" toml:"opacity"`
	ZIndex       *float64       `json:"zIndex" yaml:"zIndex" toml:"zIndex"`
	Translate    Point          `json:"translate" yaml:"translate" toml:"translate"`
	Scale        float64        `json:"scale" yaml:"scale" toml:"scale"`
	Text         *string        `json:"text,omitempty" yaml:"text,omitempty" toml:"text,omitempty"`
	Path         *string        `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
}

// BuiltinDefaults returns the registry every scene starts from.
func BuiltinDefaults() Defaults {
	return Defaults{
		Fill:      "black",
		Stroke:    StrokeDefaults{Fill: "black", Width: 0},
		Font:      FontDefaults{Family: "sans-serif", Size: 10},
		Opacity:   1,
		ZIndex:    Ptr(0.0),
		Translate: Point{},
		Scale:     1,
	}
}

// NewDefaults merges overrides on top of the built-in registry. overrides
// may be nil, a Defaults value, a map of property names, or a raw JSON
// record; anything else fails with ErrInvalidDefaultsConfig.
func NewDefaults(overrides any) (Defaults, error) {
	d := BuiltinDefaults()
	switch v := overrides.(type) {
	case nil:
		return d, nil
	case Defaults:
		return v, nil
	case *Defaults:
		if v == nil {
			return d, nil
		}
		return *v, nil
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return d, fmt.Errorf("%w: %v", ErrInvalidDefaultsConfig, err)
		}
		return d.merge(raw)
	case json.RawMessage:
		return d.merge(v)
	case []byte:
		return d.merge(v)
	default:
		return d, ErrInvalidDefaultsConfig
	}
}

func (d Defaults) merge(raw []byte) (Defaults, error) {
	if !isRecord(raw) {
		return d, ErrInvalidDefaultsConfig
	}
	out := d
	out.ZIndex = clonePtr(d.ZIndex)
	if err := json.Unmarshal(raw, &out); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDefaultsConfig, err)
	}
	return out, nil
}

// Effective is an object's resolved property set: the object's own value
// where present, the registry's otherwise.
type Effective struct {
	X, Y          float64
	Width, Height float64
	Fill          string
	StrokeFill    string
	StrokeWidth   float64
	FontFamily    string
	FontSize      float64
	BorderRadius  float64
	Rotation      float64
	Opacity       float64
	ZIndex        float64
	HasZIndex     bool
	Translate     Point
	Scale         float64
	IsChunk       bool
}

// Stroked reports whether the resolved stroke has a width and a colour.
func (e Effective) Stroked() bool {
	return e.StrokeWidth > 0 && e.StrokeFill != ""
}

// Resolve computes o's effective properties. Only absent fields fall back;
// explicit zero values on the object are kept.
func (d Defaults) Resolve(o *Object) Effective {
	e := Effective{
		X:            orDefault(o.X, d.X),
		Y:            orDefault(o.Y, d.Y),
		Width:        orDefault(o.Width, d.Width),
		Height:       orDefault(o.Height, d.Height),
		Fill:         orDefault(o.Fill, d.Fill),
		StrokeFill:   d.Stroke.Fill,
		StrokeWidth:  d.Stroke.Width,
		FontFamily:   d.Font.Family,
		FontSize:     d.Font.Size,
		BorderRadius: orDefault(o.BorderRadius, d.BorderRadius),
		Rotation:     orDefault(o.Rotation, d.Rotation),
		Opacity:      orDefault(o.Opacity, d.Opacity),
		Translate:    orDefault(o.Translate, d.Translate),
		Scale:        orDefault(o.Scale, d.Scale),
		IsChunk:      orDefault(o.IsChunk, false),
	}
	if o.Stroke != nil {
		e.StrokeFill = orDefault(o.Stroke.Fill, e.StrokeFill)
		e.StrokeWidth = orDefault(o.Stroke.Width, e.StrokeWidth)
	}
	if o.Font != nil {
		e.FontFamily = orDefault(o.Font.Family, e.FontFamily)
		e.FontSize = orDefault(o.Font.Size, e.FontSize)
	}
	switch {
	case o.ZIndex != nil:
		e.ZIndex, e.HasZIndex = *o.ZIndex, true
	case d.ZIndex != nil:
		e.ZIndex, e.HasZIndex = *d.ZIndex, true
	}
	if e.HasZIndex && math.IsNaN(e.ZIndex) {
		e.ZIndex = math.Inf(1)
	}
	return e
}

// TextContent resolves a text object's content against the registry.
func (d Defaults) TextContent(t Text) (string, bool) {
	if t.Content != nil {
		return *t.Content, true
	}
	if d.Text != nil {
		return *d.Text, true
	}
	return "", false
}

// PathData resolves a path object's geometry string against the registry.
func (d Defaults) PathData(p Path) (string, bool) {
	if p.D != nil {
		return *p.D, true
	}
	if d.Path != nil {
		return *d.Path, true
	}
	return "", false
}

func orDefault[T any](v *T, def T) T {
	if v != nil {
		return *v
	}
	return def
}

// DecodeDefaults reads a JSON defaults record, such as the body of a scene
// creation request.
func DecodeDefaults(data []byte) (Defaults, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return BuiltinDefaults(), nil
	}
	return NewDefaults(json.RawMessage(data))
}
