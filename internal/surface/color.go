package surface

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/colornames"
)

var ErrInvalidColor = errors.New("invalid color")

// ParseColor parses a CSS colour: named colours, #rgb[a] / #rrggbb[aa] hex,
// rgb() and rgba(). The empty string and "transparent" are fully
// transparent.
func ParseColor(s string) (gg.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "transparent":
		return gg.Transparent, nil
	case strings.HasPrefix(s, "#"):
		switch len(s) {
		case 4, 5, 7, 9:
			return gg.Hex(s), nil
		}
		return gg.RGBA{}, fmt.Errorf("%w %q: bad hex length", ErrInvalidColor, s)
	case strings.HasPrefix(s, "rgb"):
		return parseRGBFunc(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return gg.FromColor(c), nil
	}
	return gg.RGBA{}, fmt.Errorf("%w %q: unknown color", ErrInvalidColor, s)
}

func parseRGBFunc(s string) (gg.RGBA, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return gg.RGBA{}, fmt.Errorf("%w %q: malformed", ErrInvalidColor, s)
	}
	body := s[open+1 : len(s)-1]
	body = strings.ReplaceAll(body, "/", " ")
	fields := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 3 && len(fields) != 4 {
		return gg.RGBA{}, fmt.Errorf("%w %q: want 3 or 4 components", ErrInvalidColor, s)
	}

	var ch [4]float64
	ch[3] = 1
	for i, f := range fields {
		pct := strings.HasSuffix(f, "%")
		v, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
		if err != nil {
			return gg.RGBA{}, fmt.Errorf("%w %q: %v", ErrInvalidColor, s, err)
		}
		switch {
		case pct:
			v /= 100
		case i < 3:
			v /= 255
		}
		ch[i] = min(max(v, 0), 1)
	}
	return gg.RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}
