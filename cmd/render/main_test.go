package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRenderList(t *testing.T) {
	var buf bytes.Buffer
	err := render(context.Background(), options{width: 30, height: 20},
		[]byte(`[{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10, "fill": "lime"}]`), &buf)
	require.NoError(t, err)

	img := decodePNG(t, buf.Bytes())
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())
	r, g, b, a := img.At(5, 5).RGBA()
	assert.Zero(t, r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Zero(t, b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestRenderSceneRecord(t *testing.T) {
	scene := `{
		"width": 20, "height": 20,
		"defaults": {"fill": "blue"},
		"objects": [{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 20, "height": 20}],
		"chunks": [{"id": "hole", "x": 0, "y": 0, "width": 5, "height": 5}]
	}`
	var buf bytes.Buffer
	require.NoError(t, render(context.Background(), options{}, []byte(scene), &buf))

	img := decodePNG(t, buf.Bytes())
	_, _, b, a := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), b)
	assert.Equal(t, uint32(0xffff), a)

	_, _, _, a = img.At(2, 2).RGBA()
	assert.Zero(t, a)
}

func TestRenderDefaultsFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fill: red\n"), 0644))

	scene := `{"width": 10, "height": 10, "defaults": {"fill": "blue"},
		"objects": [{"id": 1, "type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10}]}`
	var buf bytes.Buffer
	require.NoError(t, render(context.Background(), options{defaultsFile: path}, []byte(scene), &buf))

	r, _, b, _ := decodePNG(t, buf.Bytes()).At(5, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, b)
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name  string
		opts  options
		scene string
	}{
		{"no size", options{}, `[]`},
		{"bad json", options{width: 1, height: 1}, `{`},
		{"bad object", options{width: 1, height: 1}, `[{"id": 1, "type": "blob"}]`},
		{"bad defaults", options{width: 1, height: 1}, `{"defaults": 3, "objects": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Error(t, render(context.Background(), tt.opts, []byte(tt.scene), &buf))
		})
	}
}

func TestRootCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"width": 8, "height": 8, "objects": [{"id": 1, "type": "circle", "x": 4, "y": 4, "width": 6, "height": 6}]}`), 0644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{in})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	require.NoError(t, cmd.Execute())

	want := filepath.Join(dir, "scene.png")
	assert.Contains(t, out.String(), want)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), decodePNG(t, data).Bounds())

	cmd = newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	assert.Error(t, cmd.Execute())
}
