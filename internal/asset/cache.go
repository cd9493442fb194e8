package asset

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/surface"
)

// Cache maps object ids to their decoded bitmaps. A missing entry means the
// image has not been loaded yet.
type Cache struct {
	mu      sync.RWMutex
	bitmaps map[document.ID]surface.Bitmap
}

func NewCache() *Cache {
	return &Cache{bitmaps: make(map[document.ID]surface.Bitmap)}
}

func (c *Cache) Get(id document.ID) (surface.Bitmap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bitmaps[id]
	return b, ok
}

func (c *Cache) Put(id document.ID, b surface.Bitmap) {
	c.mu.Lock()
	c.bitmaps[id] = b
	c.mu.Unlock()
}

// PutAll stores every bitmap in m at once.
func (c *Cache) PutAll(m map[document.ID]surface.Bitmap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, b := range m {
		c.bitmaps[id] = b
	}
}

func (c *Cache) Delete(id document.ID) {
	c.mu.Lock()
	delete(c.bitmaps, id)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.bitmaps)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bitmaps)
}

// Request names an image to load on behalf of an object.
type Request struct {
	ID  document.ID
	URL string
}

// LoadAll loads every request concurrently and waits for all of them. The
// first failure cancels the remaining loads and is returned; no partial
// result is returned in that case.
func LoadAll(ctx context.Context, l Loader, reqs []Request) (map[document.ID]surface.Bitmap, error) {
	out := make(map[document.ID]surface.Bitmap, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		g.Go(func() error {
			b, err := l.Load(ctx, req.URL)
			if err != nil {
				return fmt.Errorf("load image for %q: %w", req.ID, err)
			}
			mu.Lock()
			out[req.ID] = b
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
