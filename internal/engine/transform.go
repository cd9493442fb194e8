package engine

import (
	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/geometry"
	"github.com/inamate/canvasflow/internal/surface"
)

func checkScale(e document.Effective) error {
	if !(e.Scale > 0) {
		return document.ErrInvalidScale
	}
	return nil
}

// applyBase resets the surface transform and applies the object's scale.
func applyBase(s surface.Surface, e document.Effective) {
	s.Identity()
	s.Scale(e.Scale, e.Scale)
}

// applyPlacement rotates about the object's origin and then translates.
func applyPlacement(s surface.Surface, e document.Effective) {
	if e.Rotation != 0 {
		s.Translate(e.X, e.Y)
		s.Rotate(e.Rotation)
		s.Translate(-e.X, -e.Y)
	}
	if e.Translate.X != 0 || e.Translate.Y != 0 {
		s.Translate(e.Translate.X, e.Translate.Y)
	}
}

// objectTransform is the matrix applyBase followed by applyPlacement leave
// on the surface.
func objectTransform(e document.Effective) geometry.Matrix2D {
	m := geometry.Scale(e.Scale, e.Scale)
	if e.Rotation != 0 {
		m = m.Multiply(geometry.Translate(e.X, e.Y)).
			Multiply(geometry.Rotate(e.Rotation)).
			Multiply(geometry.Translate(-e.X, -e.Y))
	}
	if e.Translate.X != 0 || e.Translate.Y != 0 {
		m = m.Multiply(geometry.Translate(e.Translate.X, e.Translate.Y))
	}
	return m
}
