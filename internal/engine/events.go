package engine

import (
	"strings"

	"github.com/inamate/canvasflow/internal/document"
)

// Touch is one contact point of a touch event, in canvas coordinates.
type Touch struct {
	Identifier int64   `json:"identifier"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Event is an input event delivered to subscribers. Pointer events carry
// their position in OffsetX/OffsetY; touch events carry their contacts.
// Objects is filled in with the hit objects, in z-order, before the
// subscribers run.
type Event struct {
	Name           string             `json:"name"`
	OffsetX        float64            `json:"offsetX"`
	OffsetY        float64            `json:"offsetY"`
	Touches        []Touch            `json:"touches,omitempty"`
	ChangedTouches []Touch            `json:"changedTouches,omitempty"`
	Objects        []*document.Object `json:"objects"`
}

// Handler receives dispatched events.
type Handler func(ev *Event)

type subscription struct {
	fn Handler
}

// touchTracker follows a single active touch. Other touches are ignored
// until the active one ends.
type touchTracker struct {
	active *int64
}

func isTouch(name string) bool {
	return strings.HasPrefix(name, "touch")
}

// point returns the canvas point of ev, and false if the event must not be
// hit-tested because it belongs to an inactive touch.
func (t *touchTracker) point(ev *Event) (float64, float64, bool) {
	if !isTouch(ev.Name) {
		return ev.OffsetX, ev.OffsetY, true
	}

	if ev.Name == "touchstart" && t.active == nil {
		if first, ok := firstTouch(ev); ok {
			id := first.Identifier
			t.active = &id
		}
	}
	if t.active == nil {
		return 0, 0, false
	}

	touch, ok := findTouch(ev.ChangedTouches, *t.active)
	if !ok {
		return 0, 0, false
	}
	if ev.Name == "touchend" || ev.Name == "touchcancel" {
		t.active = nil
	}
	return touch.X, touch.Y, true
}

func (t *touchTracker) reset() {
	t.active = nil
}

func firstTouch(ev *Event) (Touch, bool) {
	if len(ev.ChangedTouches) > 0 {
		return ev.ChangedTouches[0], true
	}
	if len(ev.Touches) > 0 {
		return ev.Touches[0], true
	}
	return Touch{}, false
}

func findTouch(touches []Touch, id int64) (Touch, bool) {
	for _, t := range touches {
		if t.Identifier == id {
			return t, true
		}
	}
	return Touch{}, false
}
