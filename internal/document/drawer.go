package document

import (
	"github.com/inamate/canvasflow/internal/surface"
)

// Drawer paints a custom object. props is a copy of the object without its
// drawer.
type Drawer interface {
	Draw(s surface.Surface, canvas surface.Canvas, props *Object) error
}

// DrawFunc adapts an ordinary function to the Drawer interface.
type DrawFunc func(s surface.Surface, canvas surface.Canvas, props *Object) error

func (f DrawFunc) Draw(s surface.Surface, canvas surface.Canvas, props *Object) error {
	if f == nil {
		return ErrInvalidDrawCallback
	}
	return f(s, canvas, props)
}
