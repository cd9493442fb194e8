package document

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObjectIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"string", `{"id":"a","type":"circle"}`, "a"},
		{"number", `{"id":1,"type":"circle"}`, "1"},
		{"zero", `{"id":0,"type":"circle"}`, "0"},
		{"fraction", `{"id":1.5,"type":"circle"}`, "1.5"},
		{"missing", `{"type":"circle"}`, ""},
		{"null", `{"id":null,"type":"circle"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := DecodeObject([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.ID)
			assert.Equal(t, KindCircle, o.Kind())
		})
	}
}

func TestObjectIDRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"number", `{"id":1,"type":"circle"}`, `1`},
		{"zero", `{"id":0,"type":"circle"}`, `0`},
		{"negative", `{"id":-3,"type":"circle"}`, `-3`},
		{"fraction", `{"id":1.50,"type":"circle"}`, `1.5`},
		{"numeric string", `{"id":"1","type":"circle"}`, `"1"`},
		{"string", `{"id":"a","type":"circle"}`, `"a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := DecodeObject([]byte(tt.in))
			require.NoError(t, err)
			data, err := json.Marshal(o.Clone())
			require.NoError(t, err)
			var got map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.want, string(got["id"]))

			refs, err := json.Marshal(Refs([]*Object{o}))
			require.NoError(t, err)
			assert.Equal(t, "["+tt.want+"]", string(refs))
		})
	}
}

func TestDecodeObjectVariants(t *testing.T) {
	o, err := DecodeObject([]byte(`{"id":"l","type":"line","from":{"x":1,"y":2},"to":{"x":3,"y":4},"stroke":{"width":2}}`))
	require.NoError(t, err)
	line, ok := o.Shape.(Line)
	require.True(t, ok)
	assert.Equal(t, Point{X: 1, Y: 2}, *line.From)
	assert.Equal(t, Point{X: 3, Y: 4}, *line.To)
	require.NotNil(t, o.Stroke)
	assert.Nil(t, o.Stroke.Fill)
	assert.Equal(t, 2.0, *o.Stroke.Width)

	o, err = DecodeObject([]byte(`{"id":"c","type":"custom","draw":"grid"}`))
	require.NoError(t, err)
	assert.Equal(t, Custom{Name: "grid"}, o.Shape)

	o, err = DecodeObject([]byte(`{"id":"n"}`))
	require.NoError(t, err)
	assert.Nil(t, o.Shape)
}

func TestDecodeObjectErrors(t *testing.T) {
	_, err := DecodeObject([]byte(`{"id":"x","type":"hexagon"}`))
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = DecodeObject([]byte(`{"id":"x","type":"custom","draw":5}`))
	assert.ErrorIs(t, err, ErrInvalidDrawCallback)

	_, err = DecodeObject([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidArgumentShape)

	_, err = DecodeObjects([]byte(`{"id":1}`))
	assert.ErrorIs(t, err, ErrInvalidBatchShape)

	_, err = DecodeObjects([]byte(`[{"id":1,"type":"circle"}, null]`))
	assert.ErrorIs(t, err, ErrInvalidBatchShape)
}

func TestObjectMarshalFlat(t *testing.T) {
	o := &Object{
		ID:    "t1",
		Shape: Text{Content: Ptr("hi")},
		Props: Props{X: Ptr(0.0), ZIndex: Ptr(2.0)},
	}
	data, err := json.Marshal(o)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "t1", got["id"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, 0.0, got["x"])
	assert.Equal(t, 2.0, got["zIndex"])
	assert.NotContains(t, got, "y")
}

func TestPatchApplyRejectsIdentityButAppliesRest(t *testing.T) {
	o := &Object{ID: "1", Shape: Circle{}, Props: Props{X: Ptr(1.0)}}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"id":"2","type":"text","x":5,"fill":"red"}`), &p))

	err := p.Apply(o)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdentifierImmutable)
	assert.ErrorIs(t, err, ErrTypeImmutable)

	assert.Equal(t, ID("1"), o.ID)
	assert.Equal(t, KindCircle, o.Kind())
	assert.Equal(t, 5.0, *o.X)
	assert.Equal(t, "red", *o.Fill)
}

func TestPatchIgnoresMismatchedVariantFields(t *testing.T) {
	o := &Object{ID: "1", Shape: Rectangle{}}
	p := Patch{Text: Ptr("ignored"), Path: Ptr("M0 0"), Props: Props{Width: Ptr(4.0)}}
	require.NoError(t, p.Apply(o))
	assert.Equal(t, Rectangle{}, o.Shape)
	assert.Equal(t, 4.0, *o.Width)
}

func TestPatchDoesNotAlias(t *testing.T) {
	o := &Object{ID: "1", Shape: Polygon{Points: []Point{{X: 1, Y: 1}}}}
	pts := []Point{{X: 2, Y: 2}}
	p := Patch{Points: pts, Props: Props{Translate: &Point{X: 1}}}
	require.NoError(t, p.Apply(o))
	pts[0].X = 99
	p.Translate.X = 99
	assert.Equal(t, 2.0, o.Shape.(Polygon).Points[0].X)
	assert.Equal(t, 1.0, o.Translate.X)
}

func TestCloneIsDeep(t *testing.T) {
	o := &Object{
		ID:    "1",
		Shape: Line{From: &Point{X: 1, Y: 1}, To: &Point{X: 2, Y: 2}},
		Props: Props{Stroke: &Stroke{Width: Ptr(1.0)}},
	}
	c := o.Clone()
	c.Shape.(Line).From.X = 50
	*c.Stroke.Width = 9
	assert.Equal(t, 1.0, o.Shape.(Line).From.X)
	assert.Equal(t, 1.0, *o.Stroke.Width)
}

func TestNewDefaults(t *testing.T) {
	d, err := NewDefaults(nil)
	require.NoError(t, err)
	assert.Equal(t, BuiltinDefaults(), d)

	d, err = NewDefaults(map[string]any{"fill": "red", "stroke": map[string]any{"width": 2}})
	require.NoError(t, err)
	assert.Equal(t, "red", d.Fill)
	assert.Equal(t, 2.0, d.Stroke.Width)
	assert.Equal(t, "black", d.Stroke.Fill)
	assert.Equal(t, 10.0, d.Font.Size)

	d, err = NewDefaults(map[string]any{"zIndex": nil})
	require.NoError(t, err)
	assert.Nil(t, d.ZIndex)

	for _, bad := range []any{"red", 5, []any{1}, json.RawMessage(`[1]`)} {
		_, err := NewDefaults(bad)
		assert.ErrorIs(t, err, ErrInvalidDefaultsConfig, "%v", bad)
	}
}

func TestResolveIsNullish(t *testing.T) {
	d := BuiltinDefaults()
	d.X = 7
	d.Opacity = 0.5

	e := d.Resolve(&Object{Shape: Rectangle{}, Props: Props{Opacity: Ptr(0.0)}})
	assert.Equal(t, 7.0, e.X)
	assert.Equal(t, 0.0, e.Opacity)
	assert.Equal(t, "black", e.Fill)
	assert.Equal(t, 1.0, e.Scale)
	assert.True(t, e.HasZIndex)
	assert.False(t, e.Stroked())

	e = d.Resolve(&Object{Shape: Rectangle{}, Props: Props{
		X:      Ptr(0.0),
		Stroke: &Stroke{Width: Ptr(3.0)},
		ZIndex: Ptr(math.NaN()),
	}})
	assert.Equal(t, 0.0, e.X)
	assert.Equal(t, "black", e.StrokeFill)
	assert.True(t, e.Stroked())
	assert.True(t, math.IsInf(e.ZIndex, 1))
}

func TestCode(t *testing.T) {
	assert.Equal(t, 106, Code(ErrUnknownIdentifier))
	assert.Equal(t, 111, Code(errors.Join(ErrIdentifierImmutable, ErrTypeImmutable)))
	assert.Equal(t, 0, Code(errors.New("other")))
}
