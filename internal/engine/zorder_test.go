package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/canvasflow/internal/document"
)

func zObj(id document.ID, z *float64) *document.Object {
	return &document.Object{ID: id, Shape: document.Rectangle{}, Props: document.Props{ZIndex: z}}
}

func TestSortByZIndex(t *testing.T) {
	d := document.BuiltinDefaults()

	got := sortByZIndex([]*document.Object{
		zObj("a", document.Ptr(2.0)),
		zObj("b", nil),
		zObj("c", document.Ptr(math.NaN())),
		zObj("d", document.Ptr(-3.0)),
		zObj("e", document.Ptr(0.0)),
	}, d)
	assert.Equal(t, []document.ID{"d", "b", "e", "a", "c"}, ids(got))
}

func TestSortByZIndexWithoutDefault(t *testing.T) {
	d, err := document.NewDefaults(map[string]any{"zIndex": nil})
	require.NoError(t, err)

	got := sortByZIndex([]*document.Object{
		zObj("pos", document.Ptr(1.0)),
		zObj("none", nil),
		zObj("neg", document.Ptr(-1.0)),
	}, d)
	assert.Equal(t, []document.ID{"none", "neg", "pos"}, ids(got))
}

func TestOrderedStore(t *testing.T) {
	o := newOrdered[int]()
	o.put("a", 1)
	o.put("b", 2)
	o.put("a", 3)
	assert.Equal(t, []int{3, 2}, o.values())

	o.remove("a")
	assert.Equal(t, []int{2}, o.values())
	assert.Equal(t, 1, o.len())

	o.reset()
	assert.Zero(t, o.len())
}
