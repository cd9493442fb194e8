package surface

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const fallbackFamily = "sans-serif"

// Fonts maps CSS font families to font sources and caches faces per size.
// It is safe for concurrent use.
type Fonts struct {
	mu      sync.RWMutex
	sources map[string]*text.FontSource
	faces   map[faceKey]text.Face
	outline *text.OutlineExtractor
}

type faceKey struct {
	family string
	size   float64
}

// NewFonts returns a registry with the Go fonts bound to the generic
// families.
func NewFonts() (*Fonts, error) {
	f := &Fonts{
		sources: make(map[string]*text.FontSource),
		faces:   make(map[faceKey]text.Face),
		outline: text.NewOutlineExtractor(),
	}
	builtin := []struct {
		families []string
		data     []byte
	}{
		{[]string{"sans-serif", "serif", "system-ui", "go"}, goregular.TTF},
		{[]string{"monospace", "go mono"}, gomono.TTF},
		{[]string{"bold", "go bold"}, gobold.TTF},
	}
	for _, b := range builtin {
		src, err := text.NewFontSource(b.data)
		if err != nil {
			return nil, fmt.Errorf("load builtin font: %w", err)
		}
		for _, fam := range b.families {
			f.sources[fam] = src
		}
	}
	return f, nil
}

// Register binds family to the TrueType/OpenType font in data.
func (f *Fonts) Register(family string, data []byte) error {
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("register font %q: %w", family, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[normalizeFamily(family)] = src
	for k := range f.faces {
		if k.family == normalizeFamily(family) {
			delete(f.faces, k)
		}
	}
	return nil
}

// LoadDir registers every .ttf and .otf file in dir under its file name
// without extension. It returns the number of fonts loaded.
func (f *Fonts) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read font dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, fmt.Errorf("read font: %w", err)
		}
		family := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if err := f.Register(family, data); err != nil {
			slog.Warn("skipping font", "file", e.Name(), "error", err)
			continue
		}
		n++
	}
	return n, nil
}

// Face resolves a CSS family list ("Inter, sans-serif") to a face. Unknown
// families fall back to sans-serif.
func (f *Fonts) Face(font Font) text.Face {
	family := f.resolveFamily(font.Family)
	key := faceKey{family: family, size: font.Size}

	f.mu.RLock()
	face, ok := f.faces[key]
	src := f.sources[family]
	f.mu.RUnlock()
	if ok {
		return face
	}

	face = src.Face(font.Size)
	f.mu.Lock()
	f.faces[key] = face
	f.mu.Unlock()
	return face
}

func (f *Fonts) resolveFamily(list string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fam := range strings.Split(list, ",") {
		fam = normalizeFamily(fam)
		if _, ok := f.sources[fam]; ok {
			return fam
		}
	}
	return fallbackFamily
}

func normalizeFamily(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), `"'`))
}

// Measure returns the advance width and the font's ascent and descent.
func (f *Fonts) Measure(s string, font Font) TextMetrics {
	if font.Size <= 0 {
		return TextMetrics{}
	}
	face := f.Face(font)
	m := face.Metrics()
	return TextMetrics{
		Width:   face.Advance(s),
		Ascent:  m.Ascent,
		Descent: m.Descent,
	}
}

// TextPath returns the glyph outlines of s with the top of the em box at
// (x, y). Glyphs without an outline, such as spaces, contribute nothing.
func (f *Fonts) TextPath(s string, x, y float64, font Font) (*gg.Path, error) {
	p := gg.NewPath()
	if font.Size <= 0 || s == "" {
		return p, nil
	}
	face := f.Face(font)
	baseline := y + face.Metrics().Ascent
	parsed := face.Source().Parsed()

	f.mu.Lock()
	defer f.mu.Unlock()
	for g := range face.Glyphs(s) {
		o, err := f.outline.ExtractOutline(parsed, g.GID, face.Size())
		if err != nil {
			return p, fmt.Errorf("extract glyph outline: %w", err)
		}
		if o == nil {
			continue
		}
		ox, oy := x+g.X, baseline+g.Y
		open := false
		for _, seg := range o.Segments {
			pt := func(i int) (float64, float64) {
				return ox + float64(seg.Points[i].X), oy + float64(seg.Points[i].Y)
			}
			switch seg.Op {
			case text.OutlineOpMoveTo:
				if open {
					p.Close()
				}
				p.MoveTo(pt(0))
				open = true
			case text.OutlineOpLineTo:
				p.LineTo(pt(0))
			case text.OutlineOpQuadTo:
				cx, cy := pt(0)
				ex, ey := pt(1)
				p.QuadraticTo(cx, cy, ex, ey)
			case text.OutlineOpCubicTo:
				c1x, c1y := pt(0)
				c2x, c2y := pt(1)
				ex, ey := pt(2)
				p.CubicTo(c1x, c1y, c2x, c2y, ex, ey)
			}
		}
		if open {
			p.Close()
		}
	}
	return p, nil
}
