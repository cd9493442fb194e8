package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/surface"
)

// Engine wraps a Scene painting onto a Recorder and speaks JSON on both
// sides. It backs the browser bridge, the scene registry and the
// collaboration hub, which exchange wire records rather than Go values.
type Engine struct {
	scene    *Scene
	recorder *surface.Recorder
}

// NewEngine creates an engine with an empty scene on a recorder for canvas.
func NewEngine(canvas surface.Canvas, fonts *surface.Fonts, opts ...Option) (*Engine, error) {
	rec := surface.NewRecorder(canvas, fonts)
	s, err := New(rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{scene: s, recorder: rec}, nil
}

// Scene returns the underlying scene.
func (e *Engine) Scene() *Scene {
	return e.scene
}

// --- Commands ---

// SetObject stores one wire record and returns the stored record as JSON.
func (e *Engine) SetObject(ctx context.Context, jsonData string) (string, error) {
	o, err := document.DecodeObject([]byte(jsonData))
	if err != nil {
		return "", decodeError(err)
	}
	if _, err := e.scene.SetObject(ctx, o); err != nil {
		return "", err
	}
	return e.GetObject(string(o.ID))
}

// SetObjects stores a JSON list of wire records as one batch.
func (e *Engine) SetObjects(ctx context.Context, jsonData string) error {
	objs, err := document.DecodeObjects([]byte(jsonData))
	if err != nil {
		return err
	}
	_, err = e.scene.SetObjects(ctx, objs)
	return err
}

// UpdateObject merges a JSON patch into the object with the given id.
func (e *Engine) UpdateObject(ctx context.Context, id, patchJSON string) error {
	var p document.Patch
	if err := json.Unmarshal([]byte(patchJSON), &p); err != nil {
		return decodeError(err)
	}
	_, err := e.scene.UpdateObject(ctx, document.ID(id), &p)
	return err
}

func (e *Engine) DeleteObject(id string) error {
	return e.scene.DeleteObject(document.ID(id))
}

func (e *Engine) MoveObject(id string, x, y float64, mode string) error {
	return e.scene.MoveObject(document.ID(id), x, y, ParseMode(mode))
}

func (e *Engine) Clear() error {
	return e.scene.Clear()
}

// SetChunk stores a JSON chunk record.
func (e *Engine) SetChunk(jsonData string) error {
	c, err := DecodeChunk([]byte(jsonData))
	if err != nil {
		return err
	}
	return e.scene.SetChunk(c)
}

func (e *Engine) ClearChunk(id string) error {
	return e.scene.ClearChunk(document.ID(id))
}

func (e *Engine) ClearChunks() error {
	return e.scene.ClearChunks()
}

// LoadSample replaces the scene content with the built-in sample scene.
func (e *Engine) LoadSample(ctx context.Context) error {
	if err := e.scene.Clear(); err != nil {
		return err
	}
	_, err := e.scene.SetObjects(ctx, document.NewSampleScene())
	return err
}

// --- Queries ---

// Frame returns the draw commands of the latest painted frame and its
// sequence number.
func (e *Engine) Frame() ([]surface.DrawCommand, uint64) {
	return e.recorder.Frame()
}

// Render returns the draw commands of the latest painted frame as JSON.
func (e *Engine) Render() string {
	cmds, _ := e.recorder.Frame()
	result, _ := surface.DrawCommandsToJSON(cmds)
	return result
}

// FrameSeq returns the number of frames painted so far.
func (e *Engine) FrameSeq() uint64 {
	_, seq := e.recorder.Frame()
	return seq
}

// HitTest returns the ids of the objects under (x, y), in z-order, as JSON.
func (e *Engine) HitTest(x, y float64) (string, error) {
	hits, err := e.scene.HitTest(x, y)
	if err != nil {
		return "", err
	}
	return idsJSON(hits), nil
}

// Dispatch delivers a JSON event to subscribers and returns the hit ids.
func (e *Engine) Dispatch(eventJSON string) (string, error) {
	var ev Event
	if err := json.Unmarshal([]byte(eventJSON), &ev); err != nil {
		return "", decodeError(err)
	}
	hits, err := e.scene.Dispatch(&ev)
	if err != nil {
		return "", err
	}
	return idsJSON(hits), nil
}

// GetObject returns the stored record with the given id as JSON.
func (e *Engine) GetObject(id string) (string, error) {
	o, err := e.scene.GetObject(document.ID(id))
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetObjects returns every stored record, in z-order, as JSON.
func (e *Engine) GetObjects() string {
	data, _ := json.Marshal(e.scene.GetObjects())
	return string(data)
}

// GetChunks returns the chunk overlay as JSON.
func (e *Engine) GetChunks() string {
	chunks := e.scene.Chunks()
	if chunks == nil {
		chunks = []Chunk{}
	}
	data, _ := json.Marshal(chunks)
	return string(data)
}

// decodeError keeps coded decode errors, such as an unknown type, and tags
// anything else as a shape error.
func decodeError(err error) error {
	if document.Code(err) != 0 {
		return err
	}
	return fmt.Errorf("%w: %v", document.ErrInvalidArgumentShape, err)
}

func idsJSON(objs []*document.Object) string {
	data, _ := json.Marshal(document.Refs(objs))
	return string(data)
}
