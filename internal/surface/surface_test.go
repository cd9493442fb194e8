package surface

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/canvasflow/internal/geometry"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want gg.RGBA
	}{
		{"", gg.Transparent},
		{"transparent", gg.Transparent},
		{"#f00", gg.RGBA{R: 1, A: 1}},
		{"#00ff00", gg.RGBA{G: 1, A: 1}},
		{"black", gg.RGBA{A: 1}},
		{"White", gg.RGBA{R: 1, G: 1, B: 1, A: 1}},
		{"rgb(255, 0, 0)", gg.RGBA{R: 1, A: 1}},
		{"rgba(0,0,255,0.5)", gg.RGBA{B: 1, A: 0.5}},
		{"rgb(0 0 0 / 50%)", gg.RGBA{A: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.R, got.R, 0.01)
			assert.InDelta(t, tt.want.G, got.G, 0.01)
			assert.InDelta(t, tt.want.B, got.B, 0.01)
			assert.InDelta(t, tt.want.A, got.A, 0.01)
		})
	}

	for _, bad := range []string{"#12", "notacolor", "rgb(1,2)", "rgb(a,b,c)"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}

func newTestRaster(t *testing.T, w, h int) *Raster {
	t.Helper()
	fonts, err := NewFonts()
	require.NoError(t, err)
	return NewRaster(Canvas{Key: "test", Width: w, Height: h}, fonts)
}

func rect(x, y, w, h float64) *gg.Path {
	p := gg.NewPath()
	p.Rectangle(x, y, w, h)
	return p
}

func TestRasterFill(t *testing.T) {
	r := newTestRaster(t, 20, 20)
	require.NoError(t, r.Fill(rect(0, 0, 10, 10), "red"))

	in := r.Pixel(5, 5)
	assert.InDelta(t, 1, in.R, 0.02)
	assert.InDelta(t, 1, in.A, 0.02)
	assert.Zero(t, r.Pixel(15, 15).A)
}

func TestRasterFillTransformed(t *testing.T) {
	r := newTestRaster(t, 40, 40)
	r.Scale(2, 2)
	r.Translate(5, 5)
	require.NoError(t, r.Fill(rect(0, 0, 5, 5), "#0000ff"))

	// (0,0)-(5,5) maps to (10,10)-(20,20).
	assert.InDelta(t, 1, r.Pixel(15, 15).B, 0.02)
	assert.Zero(t, r.Pixel(5, 5).A)
	assert.Zero(t, r.Pixel(25, 25).A)
}

func TestRasterFillBadColor(t *testing.T) {
	r := newTestRaster(t, 4, 4)
	assert.Error(t, r.Fill(rect(0, 0, 4, 4), "nope"))
}

func TestRasterClearRect(t *testing.T) {
	r := newTestRaster(t, 20, 20)
	require.NoError(t, r.Fill(rect(0, 0, 20, 20), "black"))

	r.ClearRect(5, 5, 5, 5)
	assert.Zero(t, r.Pixel(7, 7).A)
	assert.InDelta(t, 1, r.Pixel(2, 2).A, 0.02)
	assert.InDelta(t, 1, r.Pixel(12, 12).A, 0.02)
}

func TestRasterClearRectRotated(t *testing.T) {
	r := newTestRaster(t, 20, 20)
	require.NoError(t, r.Fill(rect(0, 0, 20, 20), "black"))

	r.Translate(10, 10)
	r.Rotate(0.1)
	r.ClearRect(-3, -3, 6, 6)
	assert.Zero(t, r.Pixel(10, 10).A)
	assert.InDelta(t, 1, r.Pixel(1, 1).A, 0.02)
}

func TestRasterDestinationOut(t *testing.T) {
	r := newTestRaster(t, 20, 20)
	require.NoError(t, r.Fill(rect(0, 0, 20, 20), "black"))

	r.Save()
	r.SetComposite(DestinationOut)
	circle := gg.NewPath()
	circle.Circle(10, 10, 4)
	require.NoError(t, r.Fill(circle, "black"))
	r.Restore()

	assert.Zero(t, r.Pixel(10, 10).A)
	assert.InDelta(t, 1, r.Pixel(1, 1).A, 0.02)

	// The composite mode was restored.
	require.NoError(t, r.Fill(rect(8, 8, 4, 4), "black"))
	assert.InDelta(t, 1, r.Pixel(10, 10).A, 0.02)
}

func TestRasterEraseHonoursClip(t *testing.T) {
	r := newTestRaster(t, 20, 20)
	require.NoError(t, r.Fill(rect(0, 0, 20, 20), "black"))

	r.Save()
	r.Clip(rect(0, 0, 10, 20))
	r.ClearRect(0, 0, 20, 20)
	r.Restore()

	assert.Zero(t, r.Pixel(5, 5).A)
	assert.InDelta(t, 1, r.Pixel(15, 5).A, 0.02)
}

func TestRasterAlpha(t *testing.T) {
	r := newTestRaster(t, 10, 10)
	r.SetAlpha(0.5)
	require.NoError(t, r.Fill(rect(0, 0, 10, 10), "black"))
	assert.InDelta(t, 0.5, r.Pixel(5, 5).A, 0.03)

	r.SetAlpha(7)
	assert.Equal(t, 1.0, r.alpha)
}

func TestRasterStrokeZeroWidth(t *testing.T) {
	r := newTestRaster(t, 10, 10)
	require.NoError(t, r.Stroke(rect(2, 2, 6, 6), "black", 0))
	assert.Zero(t, r.Pixel(2, 2).A)
}

func TestRasterEncodePNG(t *testing.T) {
	r := newTestRaster(t, 8, 6)
	require.NoError(t, r.Fill(rect(0, 0, 8, 6), "red"))

	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestFontsMeasure(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)

	m := fonts.Measure("Hello", Font{Family: "sans-serif", Size: 20})
	assert.Greater(t, m.Width, 0.0)
	assert.Greater(t, m.Ascent, 0.0)
	assert.Greater(t, m.Height(), m.Ascent)

	longer := fonts.Measure("Hello, world", Font{Family: "sans-serif", Size: 20})
	assert.Greater(t, longer.Width, m.Width)

	assert.Equal(t, TextMetrics{}, fonts.Measure("Hello", Font{Family: "sans-serif", Size: 0}))
}

func TestFontsFamilyFallback(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)

	assert.Equal(t, "monospace", fonts.resolveFamily(`"Fira Code", monospace`))
	assert.Equal(t, fallbackFamily, fonts.resolveFamily("Nonexistent"))

	a := fonts.Measure("abc", Font{Family: "Nonexistent", Size: 12})
	b := fonts.Measure("abc", Font{Family: "sans-serif", Size: 12})
	assert.Equal(t, b, a)
}

func TestFontsTextPath(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)

	f := Font{Family: "sans-serif", Size: 20}
	p, err := fonts.TextPath("H", 10, 10, f)
	require.NoError(t, err)
	require.NotEmpty(t, p.Elements())

	b := geometry.Bounds(p)
	assert.GreaterOrEqual(t, b.X, 10.0)
	assert.GreaterOrEqual(t, b.Y, 10.0)
	assert.LessOrEqual(t, b.Y+b.Height, 10+fonts.Measure("H", f).Height()+0.5)
}

func TestRasterFillText(t *testing.T) {
	r := newTestRaster(t, 60, 30)
	require.NoError(t, r.FillText("HH", 2, 2, Font{Family: "sans-serif", Size: 24}, "black"))

	var painted int
	for y := range 30 {
		for x := range 60 {
			if r.Pixel(x, y).A > 0 {
				painted++
			}
		}
	}
	assert.Greater(t, painted, 0)
}

func TestRecorderCommands(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)
	rec := NewRecorder(Canvas{Key: "c", Width: 100, Height: 100}, fonts)

	rec.BeginFrame()
	rec.Annotate("rect-1")
	rec.Save()
	rec.Scale(2, 2)
	rec.Translate(5, 0)
	rec.SetAlpha(0.5)
	require.NoError(t, rec.Fill(rect(0, 0, 10, 10), "red"))
	rec.Restore()
	rec.Annotate("")
	rec.ClearRect(0, 0, 4, 4)

	pending := rec.Pending()
	require.Len(t, pending, 4)
	assert.Equal(t, "save", pending[0].Op)

	fill := pending[1]
	assert.Equal(t, "fill", fill.Op)
	assert.Equal(t, "rect-1", fill.ObjectID)
	assert.Equal(t, []float64{2, 0, 0, 2, 10, 0}, fill.Transform)
	assert.Equal(t, 0.5, fill.Opacity)
	assert.Equal(t, "red", fill.Fill)
	require.NotEmpty(t, fill.Path)
	assert.Equal(t, PathCommand{"M", 0.0, 0.0}, fill.Path[0])
	assert.Equal(t, PathCommand{"Z"}, fill.Path[len(fill.Path)-1])

	assert.Equal(t, "restore", pending[2].Op)
	clr := pending[3]
	assert.Equal(t, "clear", clr.Op)
	assert.Empty(t, clr.ObjectID)
	assert.Equal(t, []float64{1, 0, 0, 1, 0, 0}, clr.Transform)

	frame, seq := rec.Frame()
	assert.Empty(t, frame)
	assert.Zero(t, seq)

	rec.EndFrame()
	frame, seq = rec.Frame()
	assert.Len(t, frame, 4)
	assert.Equal(t, uint64(1), seq)

	rec.BeginFrame()
	assert.Empty(t, rec.Pending())
	frame, _ = rec.Frame()
	assert.Len(t, frame, 4, "published frame survives the next BeginFrame")
}

func TestRecorderDestinationOut(t *testing.T) {
	fonts, err := NewFonts()
	require.NoError(t, err)
	rec := NewRecorder(Canvas{Width: 10, Height: 10}, fonts)

	rec.SetComposite(DestinationOut)
	require.NoError(t, rec.Fill(rect(0, 0, 1, 1), "black"))
	assert.Equal(t, "destination-out", rec.Pending()[0].Composite)
}

func TestDrawCommandsToJSON(t *testing.T) {
	s, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	s, err = DrawCommandsToJSON([]DrawCommand{{
		Op:       "fill",
		ObjectID: "a",
		Path:     []PathCommand{{"M", 1.0, 2.0}, {"Z"}},
		Fill:     "red",
	}})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "fill", decoded[0]["op"])
	assert.Equal(t, []any{[]any{"M", 1.0, 2.0}, []any{"Z"}}, decoded[0]["path"])
	assert.NotContains(t, decoded[0], "composite")
}
