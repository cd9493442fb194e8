package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/surface"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	fonts, err := surface.NewFonts()
	require.NoError(t, err)
	e, err := NewEngine(surface.Canvas{Key: "c", Width: 100, Height: 100}, fonts, WithLoader(fakeLoader))
	require.NoError(t, err)
	return e
}

func TestEngineJSON(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	stored, err := e.SetObject(ctx, `{"id": 1, "type": "path", "path": "M0 0 L10 0 L10 10 Z", "fill": "red"}`)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored), &rec))
	assert.Equal(t, 1.0, rec["id"])
	assert.Equal(t, 10.0, rec["width"])

	require.NoError(t, e.UpdateObject(ctx, "1", `{"fill": "blue"}`))
	require.NoError(t, e.MoveObject("1", 5, 5, "absolute"))

	var cmds []surface.DrawCommand
	require.NoError(t, json.Unmarshal([]byte(e.Render()), &cmds))
	var fill *surface.DrawCommand
	for i := range cmds {
		if cmds[i].Op == "fill" {
			fill = &cmds[i]
		}
	}
	require.NotNil(t, fill)
	assert.Equal(t, "blue", fill.Fill)
	assert.Equal(t, []float64{1, 0, 0, 1, 5, 5}, fill.Transform)

	hits, err := e.HitTest(14, 6)
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, hits)

	hits, err = e.Dispatch(`{"name": "click", "offsetX": 90, "offsetY": 90}`)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, hits)
}

func TestEngineMoveModes(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.SetObject(context.Background(), `{"id": 1, "type": "rectangle", "x": 10, "y": 10}`)
	require.NoError(t, err)

	tests := []struct {
		mode         string
		x, y         float64
		wantX, wantY float64
	}{
		{"relative", 5, 5, 15, 15},
		{"", 5, 5, 5, 5},
		{"absolute", 7, 8, 7, 8},
		{"sideways", 2, 3, 2, 3},
		{"relative", 1, 1, 3, 4},
	}
	for _, tt := range tests {
		require.NoError(t, e.MoveObject("1", tt.x, tt.y, tt.mode))
		o, err := e.Scene().GetObject("1")
		require.NoError(t, err)
		assert.Equal(t, tt.wantX, *o.X, "mode %q", tt.mode)
		assert.Equal(t, tt.wantY, *o.Y, "mode %q", tt.mode)
	}
}

func TestEngineErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SetObject(ctx, `[1, 2]`)
	assert.ErrorIs(t, err, document.ErrInvalidArgumentShape)

	_, err = e.SetObject(ctx, `{"id": 1, "type": "hexagon"}`)
	assert.ErrorIs(t, err, document.ErrInvalidType)
	assert.Equal(t, 120, document.Code(err))

	_, err = e.SetObject(ctx, `{"id": 1, "type": "custom", "draw": 5}`)
	assert.Equal(t, document.Code(document.ErrInvalidDrawCallback), document.Code(err))

	_, err = e.SetObject(ctx, `{"id": 1,`)
	assert.Equal(t, document.Code(document.ErrInvalidArgumentShape), document.Code(err))

	assert.ErrorIs(t, e.UpdateObject(ctx, "1", `{"draw": 5}`), document.ErrInvalidDrawCallback)

	assert.ErrorIs(t, e.SetObjects(ctx, `{"id": 1}`), document.ErrInvalidBatchShape)
	assert.ErrorIs(t, e.UpdateObject(ctx, "nope", `{}`), document.ErrUnknownIdentifier)

	_, err = e.GetObject("nope")
	assert.ErrorIs(t, err, document.ErrUnknownIdentifier)
}

func TestEngineChunksAndSample(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.SetChunk(`{"id": "c1", "x": 1, "y": 1, "width": 4, "height": 4}`))
	assert.JSONEq(t, `[{"id": "c1", "x": 1, "y": 1, "width": 4, "height": 4, "radius": 0, "isCircular": false}]`, e.GetChunks())
	require.NoError(t, e.ClearChunks())
	assert.JSONEq(t, `[]`, e.GetChunks())

	require.NoError(t, e.LoadSample(ctx))
	var objs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(e.GetObjects()), &objs))
	assert.Len(t, objs, len(document.NewSampleScene()))
}
