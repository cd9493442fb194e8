package geometry

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg"
	"github.com/tdewolff/parse/v2/strconv"
)

var ErrInvalidPathData = errors.New("invalid path data")

// ParsePathData parses an SVG path description (M L H V C S Q T A Z and
// their relative forms) into a path. On malformed input it returns the
// path built up to the offending command together with an error, the way
// browsers render the valid prefix of a broken path.
func ParsePathData(d string) (*gg.Path, error) {
	s := &pathScanner{b: []byte(d)}
	p := gg.NewPath()

	var (
		cur, start gg.Point
		ctrl       gg.Point // last control point, for S and T reflection
		prev       byte
		cmd        byte
	)

	for {
		s.skipSeparators()
		if s.done() {
			return p, nil
		}
		if c, ok := s.command(); ok {
			cmd = c
		} else if cmd == 0 {
			return p, fmt.Errorf("%w: expected command at offset %d", ErrInvalidPathData, s.pos)
		} else if cmd == 'Z' || cmd == 'z' {
			return p, fmt.Errorf("%w: unexpected number at offset %d", ErrInvalidPathData, s.pos)
		}
		if !p.HasCurrentPoint() && cmd != 'M' && cmd != 'm' {
			return p, fmt.Errorf("%w: path must start with a moveto", ErrInvalidPathData)
		}

		rel := cmd >= 'a'
		base := cur
		if !rel {
			base = gg.Point{}
		}

		switch cmd {
		case 'M', 'm':
			x, y, err := s.pair()
			if err != nil {
				return p, err
			}
			cur = gg.Pt(base.X+x, base.Y+y)
			start = cur
			p.MoveTo(cur.X, cur.Y)
			// subsequent pairs are implicit linetos
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'l':
			x, y, err := s.pair()
			if err != nil {
				return p, err
			}
			cur = gg.Pt(base.X+x, base.Y+y)
			p.LineTo(cur.X, cur.Y)
		case 'H', 'h':
			x, err := s.number()
			if err != nil {
				return p, err
			}
			cur.X = base.X + x
			p.LineTo(cur.X, cur.Y)
		case 'V', 'v':
			y, err := s.number()
			if err != nil {
				return p, err
			}
			cur.Y = base.Y + y
			p.LineTo(cur.X, cur.Y)
		case 'C', 'c':
			n, err := s.numbers(6)
			if err != nil {
				return p, err
			}
			c1 := gg.Pt(base.X+n[0], base.Y+n[1])
			c2 := gg.Pt(base.X+n[2], base.Y+n[3])
			cur = gg.Pt(base.X+n[4], base.Y+n[5])
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, cur.X, cur.Y)
			ctrl = c2
		case 'S', 's':
			n, err := s.numbers(4)
			if err != nil {
				return p, err
			}
			c1 := cur
			if isCubic(prev) {
				c1 = gg.Pt(2*cur.X-ctrl.X, 2*cur.Y-ctrl.Y)
			}
			c2 := gg.Pt(base.X+n[0], base.Y+n[1])
			cur = gg.Pt(base.X+n[2], base.Y+n[3])
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, cur.X, cur.Y)
			ctrl = c2
		case 'Q', 'q':
			n, err := s.numbers(4)
			if err != nil {
				return p, err
			}
			c := gg.Pt(base.X+n[0], base.Y+n[1])
			cur = gg.Pt(base.X+n[2], base.Y+n[3])
			p.QuadraticTo(c.X, c.Y, cur.X, cur.Y)
			ctrl = c
		case 'T', 't':
			x, y, err := s.pair()
			if err != nil {
				return p, err
			}
			c := cur
			if isQuad(prev) {
				c = gg.Pt(2*cur.X-ctrl.X, 2*cur.Y-ctrl.Y)
			}
			cur = gg.Pt(base.X+x, base.Y+y)
			p.QuadraticTo(c.X, c.Y, cur.X, cur.Y)
			ctrl = c
		case 'A', 'a':
			rx, ry, err := s.pair()
			if err != nil {
				return p, err
			}
			phi, err := s.number()
			if err != nil {
				return p, err
			}
			large, err := s.flag()
			if err != nil {
				return p, err
			}
			sweep, err := s.flag()
			if err != nil {
				return p, err
			}
			x, y, err := s.pair()
			if err != nil {
				return p, err
			}
			end := gg.Pt(base.X+x, base.Y+y)
			SVGArc(p, cur.X, cur.Y, rx, ry, phi, large, sweep, end.X, end.Y)
			cur = end
		case 'Z', 'z':
			p.Close()
			cur = start
		default:
			return p, fmt.Errorf("%w: unknown command %q", ErrInvalidPathData, cmd)
		}
		prev = cmd
	}
}

func isCubic(c byte) bool {
	return c == 'C' || c == 'c' || c == 'S' || c == 's'
}

func isQuad(c byte) bool {
	return c == 'Q' || c == 'q' || c == 'T' || c == 't'
}

type pathScanner struct {
	b   []byte
	pos int
}

func (s *pathScanner) done() bool {
	return s.pos >= len(s.b)
}

func (s *pathScanner) skipSeparators() {
	for s.pos < len(s.b) {
		switch s.b[s.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			s.pos++
		default:
			return
		}
	}
}

func (s *pathScanner) command() (byte, bool) {
	switch c := s.b[s.pos]; c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's',
		'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		s.pos++
		return c, true
	}
	return 0, false
}

func (s *pathScanner) number() (float64, error) {
	s.skipSeparators()
	if s.done() {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrInvalidPathData)
	}
	f, n := strconv.ParseFloat(s.b[s.pos:])
	if n == 0 {
		return 0, fmt.Errorf("%w: expected number at offset %d", ErrInvalidPathData, s.pos)
	}
	s.pos += n
	return f, nil
}

func (s *pathScanner) pair() (float64, float64, error) {
	x, err := s.number()
	if err != nil {
		return 0, 0, err
	}
	y, err := s.number()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (s *pathScanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		f, err := s.number()
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// flag reads an arc flag. Flags are single characters and may be packed
// without separators ("a1 1 0 011 1").
func (s *pathScanner) flag() (bool, error) {
	s.skipSeparators()
	if s.done() {
		return false, fmt.Errorf("%w: unexpected end of data", ErrInvalidPathData)
	}
	switch s.b[s.pos] {
	case '0':
		s.pos++
		return false, nil
	case '1':
		s.pos++
		return true, nil
	}
	return false, fmt.Errorf("%w: expected arc flag at offset %d", ErrInvalidPathData, s.pos)
}
