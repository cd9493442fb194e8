package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// wireObject is the flat JSON record form of an object, as exchanged with
// browsers and scene files: {"id": 1, "type": "circle", "x": 10, ...}.
type wireObject struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Type *Kind           `json:"type,omitempty"`
	Props
	From   *Point          `json:"from,omitempty"`
	To     *Point          `json:"to,omitempty"`
	Points []Point         `json:"points,omitempty"`
	Path   *string         `json:"path,omitempty"`
	Text   *string         `json:"text,omitempty"`
	URL    *string         `json:"url,omitempty"`
	Draw   json.RawMessage `json:"draw,omitempty"`
}

func (id *ID) UnmarshalJSON(data []byte) error {
	parsed, err := parseID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Ref is an identifier in its wire form: a JSON number when the object was
// keyed by one, a string otherwise.
type Ref struct {
	ID      ID
	Numeric bool
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Numeric && r.ID != "" {
		return []byte(r.ID), nil
	}
	return json.Marshal(string(r.ID))
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	parsed, err := parseRef(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Refs returns the wire identifiers of objs, in order.
func Refs(objs []*Object) []Ref {
	out := make([]Ref, len(objs))
	for i, o := range objs {
		out[i] = o.Ref()
	}
	return out
}

func parseID(data json.RawMessage) (ID, error) {
	r, err := parseRef(data)
	return r.ID, err
}

// parseRef accepts a JSON string or number. null and absent map to "".
// Numbers are kept as their shortest decimal text.
func parseRef(data json.RawMessage) (Ref, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Ref{}, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Ref{}, fmt.Errorf("decode id: %w", err)
		}
		return Ref{ID: ID(s)}, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return Ref{}, fmt.Errorf("decode id: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return Ref{}, fmt.Errorf("decode id: %w", err)
	}
	return Ref{ID: ID(strconv.FormatFloat(f, 'f', -1, 64)), Numeric: true}, nil
}

func parseDrawName(data json.RawMessage) (*string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return nil, ErrInvalidDrawCallback
	}
	return &name, nil
}

func (o *Object) UnmarshalJSON(data []byte) error {
	if !isRecord(data) {
		return ErrInvalidArgumentShape
	}
	var w wireObject
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	ref, err := parseRef(w.ID)
	if err != nil {
		return err
	}
	drawName, err := parseDrawName(w.Draw)
	if err != nil {
		return err
	}

	obj := Object{ID: ref.ID, NumericID: ref.Numeric, Props: w.Props}
	if w.Type != nil {
		switch *w.Type {
		case KindRectangle:
			obj.Shape = Rectangle{}
		case KindCircle:
			obj.Shape = Circle{}
		case KindTriangle:
			obj.Shape = Triangle{}
		case KindLine:
			obj.Shape = Line{From: w.From, To: w.To}
		case KindPolygon:
			obj.Shape = Polygon{Points: w.Points}
		case KindPath:
			obj.Shape = Path{D: w.Path}
		case KindText:
			obj.Shape = Text{Content: w.Text}
		case KindImage:
			img := Image{}
			if w.URL != nil {
				img.URL = *w.URL
			}
			obj.Shape = img
		case KindCustom:
			c := Custom{}
			if drawName != nil {
				c.Name = *drawName
			}
			obj.Shape = c
		default:
			return fmt.Errorf("%w: %q", ErrInvalidType, *w.Type)
		}
	}
	*o = obj
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	w := wireObject{Props: o.Props}
	id, err := o.Ref().MarshalJSON()
	if err != nil {
		return nil, err
	}
	w.ID = id
	if o.Shape != nil {
		k := o.Shape.Kind()
		w.Type = &k
	}
	switch s := o.Shape.(type) {
	case Line:
		w.From, w.To = s.From, s.To
	case Polygon:
		w.Points = s.Points
	case Path:
		w.Path = s.D
	case Text:
		w.Text = s.Content
	case Image:
		w.URL = &s.URL
	case Custom:
		if s.Name != "" {
			name, err := json.Marshal(s.Name)
			if err != nil {
				return nil, err
			}
			w.Draw = name
		}
	}
	return json.Marshal(w)
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	if !isRecord(data) {
		return ErrInvalidArgumentShape
	}
	var w wireObject
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	drawName, err := parseDrawName(w.Draw)
	if err != nil {
		return err
	}
	out := Patch{
		Type:     w.Type,
		Props:    w.Props,
		From:     w.From,
		To:       w.To,
		Points:   w.Points,
		Path:     w.Path,
		Text:     w.Text,
		URL:      w.URL,
		DrawName: drawName,
	}
	if len(w.ID) > 0 {
		id, err := parseID(w.ID)
		if err != nil {
			return err
		}
		out.ID = &id
	}
	*p = out
	return nil
}

// DecodeObject decodes one wire record.
func DecodeObject(data []byte) (*Object, error) {
	var o Object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DecodeObjects decodes a JSON list of wire records. Anything other than a
// list of records fails with ErrInvalidBatchShape.
func DecodeObjects(data []byte) ([]*Object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrInvalidBatchShape
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBatchShape, err)
	}
	objs := make([]*Object, 0, len(raw))
	for i, r := range raw {
		if !isRecord(r) {
			return nil, ErrInvalidBatchShape
		}
		o, err := DecodeObject(r)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		objs = append(objs, o)
	}
	return objs, nil
}

func isRecord(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}
