package engine

import (
	"slices"

	"github.com/inamate/canvasflow/internal/document"
)

// ordered is a map that remembers insertion order. Replacing an existing
// key keeps its original slot.
type ordered[T any] struct {
	keys  []document.ID
	items map[document.ID]T
}

func newOrdered[T any]() *ordered[T] {
	return &ordered[T]{items: make(map[document.ID]T)}
}

func (o *ordered[T]) get(id document.ID) (T, bool) {
	v, ok := o.items[id]
	return v, ok
}

func (o *ordered[T]) put(id document.ID, v T) {
	if _, ok := o.items[id]; !ok {
		o.keys = append(o.keys, id)
	}
	o.items[id] = v
}

func (o *ordered[T]) remove(id document.ID) bool {
	if _, ok := o.items[id]; !ok {
		return false
	}
	delete(o.items, id)
	o.keys = slices.DeleteFunc(o.keys, func(k document.ID) bool { return k == id })
	return true
}

// values returns the items in insertion order.
func (o *ordered[T]) values() []T {
	out := make([]T, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

func (o *ordered[T]) len() int {
	return len(o.keys)
}

func (o *ordered[T]) reset() {
	o.keys = nil
	clear(o.items)
}
