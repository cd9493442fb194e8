package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/canvasflow/internal/document"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CANVAS_WIDTH", "640")
	t.Setenv("ASSET_FETCH_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 640, cfg.CanvasWidth)
	assert.Equal(t, 720, cfg.CanvasHeight)
	assert.Equal(t, 3*time.Second, cfg.AssetFetchTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestOriginHosts(t *testing.T) {
	cfg := &Config{AllowedOrigins: []string{"https://draw.example.com", "http://localhost:3000", "*.example.org"}}
	assert.Equal(t, []string{"draw.example.com", "localhost:3000", "*.example.org"}, cfg.OriginHosts())
}

func TestLoadRejectsEmptyCanvas(t *testing.T) {
	t.Setenv("CANVAS_HEIGHT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLevelFallback(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestDecodeDefaults(t *testing.T) {
	tests := []struct {
		ext  string
		data string
	}{
		{".yaml", "fill: red\nfont:\n  size: 14\nscale: 2\n"},
		{".yml", "fill: red\nfont:\n  size: 14\nscale: 2\n"},
		{".toml", "fill = \"red\"\nscale = 2\n[font]\nsize = 14\n"},
		{".json", `{"fill": "red", "font": {"size": 14}, "scale": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			d, err := DecodeDefaults(tt.ext, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, "red", d.Fill)
			assert.Equal(t, 14.0, d.Font.Size)
			assert.Equal(t, 2.0, d.Scale)
			assert.Equal(t, "sans-serif", d.Font.Family, "unset keys keep built-in values")
			assert.Equal(t, 1.0, d.Opacity)
		})
	}
}

func TestDecodeDefaultsInvalid(t *testing.T) {
	for ext, data := range map[string]string{
		".yaml": "fill: [unclosed",
		".toml": "fill = ",
		".json": `[1, 2]`,
	} {
		_, err := DecodeDefaults(ext, []byte(data))
		assert.ErrorIs(t, err, document.ErrInvalidDefaultsConfig, ext)
	}
}

func TestLoadDefaults(t *testing.T) {
	d, err := LoadDefaults("")
	require.NoError(t, err)
	assert.Equal(t, document.BuiltinDefaults(), d)

	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("text: hello\n"), 0o644))
	d, err = LoadDefaults(path)
	require.NoError(t, err)
	require.NotNil(t, d.Text)
	assert.Equal(t, "hello", *d.Text)

	_, err = LoadDefaults(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
