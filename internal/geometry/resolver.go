package geometry

import (
	"sync"
)

// Resolver measures path descriptions.
type Resolver interface {
	PathBounds(d string) (Rect, error)
}

// PathResolver parses path data with ParsePathData and caches the measured
// bounds per description. It is safe for concurrent use.
type PathResolver struct {
	mu    sync.Mutex
	cache map[string]resolved
	limit int
}

type resolved struct {
	rect Rect
	err  error
}

// NewPathResolver returns a resolver keeping at most limit entries. A
// limit of 0 disables caching.
func NewPathResolver(limit int) *PathResolver {
	return &PathResolver{cache: make(map[string]resolved), limit: limit}
}

// PathBounds returns the tight bounding box of d in its own coordinates.
// Malformed data yields the bounds of the valid prefix along with the
// parse error.
func (r *PathResolver) PathBounds(d string) (Rect, error) {
	r.mu.Lock()
	if hit, ok := r.cache[d]; ok {
		r.mu.Unlock()
		return hit.rect, hit.err
	}
	r.mu.Unlock()

	p, err := ParsePathData(d)
	rect := Bounds(p)

	if r.limit > 0 {
		r.mu.Lock()
		if len(r.cache) >= r.limit {
			clear(r.cache)
		}
		r.cache[d] = resolved{rect: rect, err: err}
		r.mu.Unlock()
	}
	return rect, err
}
