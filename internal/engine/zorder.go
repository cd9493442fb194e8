package engine

import (
	"cmp"
	"slices"

	"github.com/inamate/canvasflow/internal/document"
)

// sortByZIndex returns objs in painting order: ascending effective zIndex,
// stable with respect to the input order. An object without a zIndex sorts
// before one with a positive zIndex and ties with anything else. NaN has
// already been resolved to +Inf.
func sortByZIndex(objs []*document.Object, d document.Defaults) []*document.Object {
	type entry struct {
		obj *document.Object
		eff document.Effective
	}
	entries := make([]entry, len(objs))
	for i, o := range objs {
		entries[i] = entry{obj: o, eff: d.Resolve(o)}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return compareZ(a.eff, b.eff)
	})

	out := make([]*document.Object, len(entries))
	for i, e := range entries {
		out[i] = e.obj
	}
	return out
}

func compareZ(a, b document.Effective) int {
	switch {
	case !a.HasZIndex && !b.HasZIndex:
		return 0
	case !a.HasZIndex:
		if b.ZIndex > 0 {
			return -1
		}
		return 0
	case !b.HasZIndex:
		if a.ZIndex > 0 {
			return 1
		}
		return 0
	}
	return cmp.Compare(a.ZIndex, b.ZIndex)
}
