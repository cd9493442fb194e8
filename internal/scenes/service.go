package scenes

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/inamate/canvasflow/internal/asset"
	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
	"github.com/inamate/canvasflow/internal/typeid"
)

var ErrNotFound = errors.New("scene not found")

// FrameFunc receives every frame painted by any scene in the registry.
type FrameFunc func(sceneID string, cmds []surface.DrawCommand, seq uint64)

type Options struct {
	Fonts    *surface.Fonts
	Defaults document.Defaults
	Loader   asset.Loader
	Drawers  map[string]document.Drawer
	Width    int
	Height   int
	Logger   *slog.Logger
}

// Service is the in-memory registry of live scenes. Each scene paints onto
// its own recorder.
type Service struct {
	mu      sync.RWMutex
	opts    Options
	log     *slog.Logger
	entries map[string]*entry

	frameMu  sync.RWMutex
	onFrame  []FrameFunc
	onDelete []func(sceneID string)
}

type entry struct {
	info   Scene
	engine *engine.Engine
	unhook func()
}

type Scene struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Objects   int       `json:"objects"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Defaults == (document.Defaults{}) {
		opts.Defaults = document.BuiltinDefaults()
	}
	return &Service{
		opts:    opts,
		log:     log,
		entries: make(map[string]*entry),
	}
}

// OnFrame subscribes fn to the frames of every scene.
func (s *Service) OnFrame(fn FrameFunc) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

// OnDelete subscribes fn to scene deletions.
func (s *Service) OnDelete(fn func(sceneID string)) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

func (s *Service) Create(name string, width, height int) (*Scene, error) {
	return s.CreateWithDefaults(name, width, height, s.opts.Defaults)
}

// CreateWithDefaults creates a scene whose registry is d instead of the
// service-wide defaults.
func (s *Service) CreateWithDefaults(name string, width, height int, d document.Defaults) (*Scene, error) {
	if width <= 0 {
		width = s.opts.Width
	}
	if height <= 0 {
		height = s.opts.Height
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("create scene: invalid size %dx%d", width, height)
	}

	id := typeid.NewSceneID()
	opts := []engine.Option{
		engine.WithDefaults(d),
		engine.WithLogger(s.log.With("scene", id)),
	}
	if s.opts.Loader != nil {
		opts = append(opts, engine.WithLoader(s.opts.Loader))
	}
	for drawer, d := range s.opts.Drawers {
		opts = append(opts, engine.WithDrawer(drawer, d))
	}

	eng, err := engine.NewEngine(surface.Canvas{Key: id, Width: width, Height: height}, s.opts.Fonts, opts...)
	if err != nil {
		return nil, fmt.Errorf("create scene: %w", err)
	}

	e := &entry{
		info: Scene{
			ID:        id,
			Name:      name,
			Width:     width,
			Height:    height,
			CreatedAt: time.Now().UTC(),
		},
		engine: eng,
	}
	e.unhook = eng.Scene().OnPaint(func() { s.publish(id, eng) })

	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()

	s.log.Info("scene created", "scene", id, "name", name, "width", width, "height", height)
	return s.describe(e), nil
}

// CreateSample creates a scene holding the built-in sample content.
func (s *Service) CreateSample(ctx context.Context, name string) (*Scene, error) {
	sc, err := s.Create(name, 0, 0)
	if err != nil {
		return nil, err
	}
	eng, err := s.Engine(sc.ID)
	if err != nil {
		return nil, err
	}
	if err := eng.LoadSample(ctx); err != nil {
		return nil, fmt.Errorf("load sample scene: %w", err)
	}
	return s.Get(sc.ID)
}

func (s *Service) Get(id string) (*Scene, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.describe(e), nil
}

// Engine returns the live engine of a scene.
func (s *Service) Engine(id string) (*engine.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.engine, nil
}

// List returns every scene, oldest first.
func (s *Service) List() []Scene {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Scene, len(entries))
	for i, e := range entries {
		out[i] = *s.describe(e)
	}
	slices.SortFunc(out, func(a, b Scene) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.unhook()
	s.log.Info("scene deleted", "scene", id)

	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	for _, fn := range s.onDelete {
		fn(id)
	}
	return nil
}

func (s *Service) describe(e *entry) *Scene {
	info := e.info
	info.Objects = len(e.engine.Scene().GetObjects())
	return &info
}

func (s *Service) publish(id string, eng *engine.Engine) {
	cmds, seq := eng.Frame()
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	for _, fn := range s.onFrame {
		fn(id, cmds, seq)
	}
}
