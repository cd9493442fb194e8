package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/inamate/canvasflow/internal/asset"
	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/geometry"
	"github.com/inamate/canvasflow/internal/surface"
)

const pathCacheSize = 256

// Mode selects how MoveObject interprets its offsets.
type Mode string

const (
	ModeRelative Mode = "relative"
	ModeAbsolute Mode = "absolute"
)

// ParseMode maps a wire mode to a Mode. Only "relative" is relative; any
// other value, including none, is absolute.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRelative {
		return ModeRelative
	}
	return ModeAbsolute
}

// SurfaceLookup resolves a surface by key, for example a canvas element
// selector.
type SurfaceLookup func(key string) (surface.Surface, error)

// Scene owns an object store and the surface it is painted on. Every
// mutation repaints the whole surface. Mutations, paints and hit-tests are
// serialised; image loads run without holding the lock.
type Scene struct {
	mu       sync.Mutex
	surface  surface.Surface
	defaults document.Defaults
	objects  *ordered[*document.Object]
	chunks   *ordered[Chunk]
	assets   *asset.Cache
	loader   asset.Loader
	resolver geometry.Resolver
	drawers  map[string]document.Drawer
	log      *slog.Logger

	handlers map[string][]*subscription
	touch    touchTracker
	hooks    []*paintHook
}

type paintHook struct {
	fn func()
}

type Option func(*Scene) error

// WithDefaults merges overrides over the built-in defaults. See
// document.NewDefaults for the accepted forms.
func WithDefaults(overrides any) Option {
	return func(s *Scene) error {
		d, err := document.NewDefaults(overrides)
		if err != nil {
			return err
		}
		s.defaults = d
		return nil
	}
}

func WithLoader(l asset.Loader) Option {
	return func(s *Scene) error {
		s.loader = l
		return nil
	}
}

func WithResolver(r geometry.Resolver) Option {
	return func(s *Scene) error {
		s.resolver = r
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) error {
		s.log = l
		return nil
	}
}

// WithDrawer registers a named drawer for custom objects.
func WithDrawer(name string, d document.Drawer) Option {
	return func(s *Scene) error {
		return s.registerDrawer(name, d)
	}
}

// New creates an empty scene painting onto surf.
func New(surf surface.Surface, opts ...Option) (*Scene, error) {
	if surf == nil {
		return nil, document.ErrNoSurfaceBound
	}
	s := &Scene{
		surface:  surf,
		defaults: document.BuiltinDefaults(),
		objects:  newOrdered[*document.Object](),
		chunks:   newOrdered[Chunk](),
		assets:   asset.NewCache(),
		loader:   asset.NewLoader(".", 0),
		resolver: geometry.NewPathResolver(pathCacheSize),
		drawers:  make(map[string]document.Drawer),
		log:      slog.Default(),
		handlers: make(map[string][]*subscription),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open creates a scene on the surface lookup resolves for key.
func Open(key string, lookup SurfaceLookup, opts ...Option) (*Scene, error) {
	if lookup == nil {
		return nil, document.ErrNoSurfaceBound
	}
	surf, err := lookup(key)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %q: %v", document.ErrNoSurfaceBound, key, err)
	}
	return New(surf, opts...)
}

// Surface returns the bound surface, or nil after Bind(nil).
func (s *Scene) Surface() surface.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

func (s *Scene) Defaults() document.Defaults {
	return s.defaults
}

// Bind replaces the surface and repaints onto it. Binding nil detaches the
// scene; paints then fail with ErrNoSurfaceBound.
func (s *Scene) Bind(surf surface.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surf
	s.touch.reset()
	if surf == nil {
		return nil
	}
	return s.repaintLocked()
}

// RegisterDrawer makes d available to custom objects naming it.
func (s *Scene) RegisterDrawer(name string, d document.Drawer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerDrawer(name, d)
}

func (s *Scene) registerDrawer(name string, d document.Drawer) error {
	if name == "" {
		return document.ErrMissingDrawCallback
	}
	if d == nil {
		return document.ErrInvalidDrawCallback
	}
	s.drawers[name] = d
	return nil
}

// SetObject stores o, replacing any object with the same id, and repaints.
// Image objects are painted once their image has loaded. The returned
// object is a copy of o as given, without measured geometry.
func (s *Scene) SetObject(ctx context.Context, o *document.Object) (*document.Object, error) {
	if err := validate(o); err != nil {
		return nil, err
	}
	stored := o.Clone()

	var bitmap *surface.Bitmap
	if img, ok := stored.Shape.(document.Image); ok {
		b, err := s.loader.Load(ctx, img.URL)
		if err != nil {
			return nil, fmt.Errorf("set object %q: %w", o.ID, err)
		}
		bitmap = &b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDrawer(stored); err != nil {
		return nil, err
	}
	s.resolvePath(stored)
	s.objects.put(stored.ID, stored)
	if bitmap != nil {
		s.assets.Put(stored.ID, *bitmap)
	} else {
		s.assets.Delete(stored.ID)
	}
	s.log.Debug("object set", "object", stored.ID, "type", stored.Kind())

	if err := s.repaintLocked(); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// SetObjects stores every object in list and repaints once. Images are
// loaded concurrently; if any load fails nothing is stored.
func (s *Scene) SetObjects(ctx context.Context, list []*document.Object) ([]*document.Object, error) {
	if list == nil || slices.Contains(list, nil) {
		return nil, document.ErrInvalidBatchShape
	}
	stored := make([]*document.Object, len(list))
	images := make(map[document.ID]int)
	for i, o := range list {
		if err := validate(o); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		stored[i] = o.Clone()
		if _, ok := o.Shape.(document.Image); ok {
			images[o.ID] = i
		} else {
			delete(images, o.ID)
		}
	}

	reqs := make([]asset.Request, 0, len(images))
	for id, i := range images {
		reqs = append(reqs, asset.Request{ID: id, URL: stored[i].Shape.(document.Image).URL})
	}
	bitmaps, err := asset.LoadAll(ctx, s.loader, reqs)
	if err != nil {
		return nil, fmt.Errorf("set objects: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range stored {
		if err := s.checkDrawer(o); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
	}
	for _, o := range stored {
		s.resolvePath(o)
		s.objects.put(o.ID, o)
		if _, ok := bitmaps[o.ID]; !ok {
			s.assets.Delete(o.ID)
		}
	}
	s.assets.PutAll(bitmaps)
	s.log.Debug("objects set", "count", len(stored), "images", len(bitmaps))

	if err := s.repaintLocked(); err != nil {
		return nil, err
	}
	out := make([]*document.Object, len(list))
	for i, o := range list {
		out[i] = o.Clone()
	}
	return out, nil
}

// UpdateObject merges patch into the object with the given id and
// repaints. A changed image url is loaded before the repaint. Attempts to
// change the id or type are reported after every other field of the patch
// has been applied and painted.
func (s *Scene) UpdateObject(ctx context.Context, id document.ID, patch *document.Patch) (*document.Object, error) {
	if id == "" {
		return nil, document.ErrMissingIdentifier
	}
	if patch == nil {
		return nil, document.ErrInvalidArgumentShape
	}

	s.mu.Lock()
	cur, ok := s.objects.get(id)
	reload := ok && patch.ChangesURL(cur)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", document.ErrUnknownIdentifier, id)
	}

	var bitmap surface.Bitmap
	if reload {
		if *patch.URL == "" {
			return nil, document.ErrMissingURL
		}
		var err error
		if bitmap, err = s.loader.Load(ctx, *patch.URL); err != nil {
			return nil, fmt.Errorf("update object %q: %w", id, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok = s.objects.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", document.ErrUnknownIdentifier, id)
	}
	next := cur.Clone()
	rejected := patch.Apply(next)
	if err := validate(next); err != nil {
		return nil, err
	}
	if err := s.checkDrawer(next); err != nil {
		return nil, err
	}
	if patch.ChangesPath(next) {
		s.resolvePath(next)
	}
	s.objects.put(id, next)
	if reload {
		s.assets.Put(id, bitmap)
	}

	if err := s.repaintLocked(); err != nil {
		return nil, err
	}
	return next.Clone(), rejected
}

// GetObject returns a copy of the object with the given id.
func (s *Scene) GetObject(id document.ID) (*document.Object, error) {
	if id == "" {
		return nil, document.ErrMissingIdentifier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", document.ErrUnknownIdentifier, id)
	}
	return o.Clone(), nil
}

// GetObjects returns copies of every object in z-order.
func (s *Scene) GetObjects() []*document.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(sortByZIndex(s.objects.values(), s.defaults))
}

// DeleteObject removes an object and its image and repaints. Deleting an
// unknown id does nothing.
func (s *Scene) DeleteObject(id document.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.objects.remove(id) {
		return nil
	}
	s.assets.Delete(id)
	s.log.Debug("object deleted", "object", id)
	return s.repaintLocked()
}

// MoveObject repositions an object. Lines, paths and polygons move through
// their translate offset, everything else through x and y. In relative mode
// the offsets are added to the current effective position.
func (s *Scene) MoveObject(id document.ID, dx, dy float64, mode Mode) error {
	if id == "" {
		return document.ErrMissingIdentifier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects.get(id)
	if !ok {
		return fmt.Errorf("%w: %q", document.ErrUnknownIdentifier, id)
	}

	e := s.defaults.Resolve(o)
	if o.Kind().UsesTranslate() {
		t := document.Point{X: dx, Y: dy}
		if mode == ModeRelative {
			t.X += e.Translate.X
			t.Y += e.Translate.Y
		}
		o.Translate = &t
	} else {
		x, y := dx, dy
		if mode == ModeRelative {
			x += e.X
			y += e.Y
		}
		o.X, o.Y = &x, &y
	}
	return s.repaintLocked()
}

// Clear removes every object and erases the surface. Chunks are kept.
func (s *Scene) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return document.ErrNoSurfaceBound
	}
	s.objects.reset()
	s.assets.Clear()

	f, framed := s.surface.(surface.Framer)
	if framed {
		f.BeginFrame()
	}
	canvas := s.surface.Canvas()
	s.surface.Identity()
	s.surface.ClearRect(0, 0, float64(canvas.Width), float64(canvas.Height))
	if framed {
		f.EndFrame()
	}
	s.notifyLocked()
	return nil
}

// SetChunk adds or replaces an overlay erasure chunk and repaints.
func (s *Scene) SetChunk(c Chunk) error {
	if c.ID == "" {
		return document.ErrMissingIdentifier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks.put(c.ID, c)
	return s.repaintLocked()
}

// ClearChunk removes one chunk and repaints.
func (s *Scene) ClearChunk(id document.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks.remove(id)
	return s.repaintLocked()
}

// Chunks returns the overlay chunks in insertion order.
func (s *Scene) Chunks() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks.values()
}

// ClearChunks removes every chunk and repaints.
func (s *Scene) ClearChunks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks.reset()
	return s.repaintLocked()
}

// Render repaints the bound surface.
func (s *Scene) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repaintLocked()
}

// RenderTo paints the scene onto target without touching the bound
// surface or the stored objects.
func (s *Scene) RenderTo(target surface.Surface) error {
	if target == nil {
		return document.ErrNoSurfaceBound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.pipeline().paint(target, s.objects.values(), s.chunks.values())
	return err
}

// HitTest returns copies of the objects under the canvas point (x, y), in
// z-order.
func (s *Scene) HitTest(x, y float64) ([]*document.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return nil, document.ErrNoSurfaceBound
	}
	hits, err := s.pipeline().hitTest(s.surface, s.objects.values(), x, y)
	if err != nil {
		return nil, err
	}
	return cloneAll(hits), nil
}

// On subscribes fn to events named name. The returned function
// unsubscribes it.
func (s *Scene) On(name string, fn Handler) (func(), error) {
	if name == "" {
		return nil, document.ErrInvalidEventName
	}
	if fn == nil {
		return nil, document.ErrInvalidCallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return nil, document.ErrNoSurfaceBound
	}
	sub := &subscription{fn: fn}
	s.handlers[name] = append(s.handlers[name], sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.handlers[name] = slices.DeleteFunc(s.handlers[name], func(h *subscription) bool { return h == sub })
		})
	}, nil
}

// Dispatch hit-tests ev, attaches the hit objects and delivers it to the
// subscribers of ev.Name. Touch events that do not belong to the active
// touch are delivered with no objects. A malformed object aborts the
// dispatch before any subscriber runs.
func (s *Scene) Dispatch(ev *Event) ([]*document.Object, error) {
	if ev == nil {
		return nil, document.ErrInvalidArgumentShape
	}
	if ev.Name == "" {
		return nil, document.ErrInvalidEventName
	}

	s.mu.Lock()
	if s.surface == nil {
		s.mu.Unlock()
		return nil, document.ErrNoSurfaceBound
	}
	hits := []*document.Object{}
	if x, y, ok := s.touch.point(ev); ok {
		found, err := s.pipeline().hitTest(s.surface, s.objects.values(), x, y)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		hits = cloneAll(found)
	}
	subs := slices.Clone(s.handlers[ev.Name])
	s.mu.Unlock()

	ev.Objects = hits
	for _, sub := range subs {
		sub.fn(ev)
	}
	return hits, nil
}

// OnPaint registers fn to run after every completed paint of the bound
// surface. fn runs with the scene locked and must not call back into it.
func (s *Scene) OnPaint(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &paintHook{fn: fn}
	s.hooks = append(s.hooks, h)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.hooks = slices.DeleteFunc(s.hooks, func(x *paintHook) bool { return x == h })
	}
}

func (s *Scene) pipeline() *pipeline {
	return &pipeline{
		defaults: s.defaults,
		bitmaps:  s.assets,
		resolver: s.resolver,
		drawers:  s.drawers,
		log:      s.log,
	}
}

func (s *Scene) repaintLocked() error {
	if s.surface == nil {
		return document.ErrNoSurfaceBound
	}
	measured, err := s.pipeline().paint(s.surface, s.objects.values(), s.chunks.values())
	if err != nil {
		return err
	}
	s.applyBackfill(measured)
	s.notifyLocked()
	return nil
}

func (s *Scene) notifyLocked() {
	for _, h := range s.hooks {
		h.fn()
	}
}

// applyBackfill merges measured geometry into fields the objects leave
// unset.
func (s *Scene) applyBackfill(measured []Measurement) {
	for _, m := range measured {
		o, ok := s.objects.get(m.ID)
		if !ok {
			continue
		}
		fillUnset(&o.X, m.X)
		fillUnset(&o.Y, m.Y)
		fillUnset(&o.Width, m.Width)
		fillUnset(&o.Height, m.Height)
	}
}

// resolvePath fills unset geometry of a path object from its own path data.
func (s *Scene) resolvePath(o *document.Object) {
	p, ok := o.Shape.(document.Path)
	if !ok || p.D == nil {
		return
	}
	bounds, err := s.resolver.PathBounds(*p.D)
	if err != nil {
		s.log.Warn("malformed path data", "object", o.ID, "error", err)
	}
	if !measurable(bounds, err) {
		return
	}
	fillUnset(&o.X, &bounds.X)
	fillUnset(&o.Y, &bounds.Y)
	fillUnset(&o.Width, &bounds.Width)
	fillUnset(&o.Height, &bounds.Height)
}

func (s *Scene) checkDrawer(o *document.Object) error {
	c, ok := o.Shape.(document.Custom)
	if !ok || c.Draw != nil {
		return nil
	}
	if _, ok := s.drawers[c.Name]; !ok {
		return fmt.Errorf("%w: no drawer named %q", document.ErrInvalidDrawCallback, c.Name)
	}
	return nil
}

// validate checks the invariants an object must satisfy to be stored.
func validate(o *document.Object) error {
	if o == nil {
		return document.ErrInvalidArgumentShape
	}
	if o.ID == "" {
		return document.ErrMissingIdentifier
	}
	if o.Shape == nil {
		return document.ErrMissingType
	}
	switch shape := o.Shape.(type) {
	case document.Image:
		if shape.URL == "" {
			return document.ErrMissingURL
		}
	case document.Custom:
		if shape.Draw == nil && shape.Name == "" {
			return document.ErrMissingDrawCallback
		}
	}
	if o.IsChunk != nil && *o.IsChunk && !o.Kind().Chunkable() {
		return document.ErrInvalidChunkType
	}
	if o.Scale != nil && !(*o.Scale > 0) {
		return document.ErrInvalidScale
	}
	return nil
}

func fillUnset(dst **float64, v *float64) {
	if *dst == nil && v != nil {
		*dst = document.Ptr(*v)
	}
}

func cloneAll(objs []*document.Object) []*document.Object {
	out := make([]*document.Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}
