//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"strings"
	"syscall/js"
	"time"

	"github.com/inamate/canvasflow/internal/asset"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
)

const fetchTimeout = 10 * time.Second

var (
	eng   *engine.Engine
	fonts *surface.Fonts
)

func main() {
	var err error
	fonts, err = surface.NewFonts()
	if err != nil {
		js.Global().Get("console").Call("error", "canvasflow: load fonts: "+err.Error())
		return
	}

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("init", js.FuncOf(initScene))
	api.Set("setObject", js.FuncOf(setObject))
	api.Set("setObjects", js.FuncOf(setObjects))
	api.Set("updateObject", js.FuncOf(updateObject))
	api.Set("deleteObject", js.FuncOf(deleteObject))
	api.Set("moveObject", js.FuncOf(moveObject))
	api.Set("clear", js.FuncOf(clearScene))
	api.Set("setChunk", js.FuncOf(setChunk))
	api.Set("clearChunk", js.FuncOf(clearChunk))
	api.Set("clearChunks", js.FuncOf(clearChunks))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("on", js.FuncOf(on))
	api.Set("dispatch", js.FuncOf(dispatch))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(render))
	api.Set("frameSeq", js.FuncOf(frameSeq))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getObject", js.FuncOf(getObject))
	api.Set("getObjects", js.FuncOf(getObjects))
	api.Set("getChunks", js.FuncOf(getChunks))

	js.Global().Set("canvasflow", api)
	js.Global().Set("canvasflowWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func fail(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func failMsg(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

// async runs fn off the event loop and returns a Promise of its result.
// Commands that may load images must not block the callback, since fetch
// completes on the event loop.
func async(fn func(ctx context.Context) (any, error)) any {
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			v, err := fn(context.Background())
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	defer handler.Release()
	return js.Global().Get("Promise").New(handler)
}

// browserLoader fetches absolute urls directly and resolves relative ones,
// such as uploaded "/assets/..." paths, against the page origin.
func browserLoader() asset.Loader {
	remote := &asset.HTTPLoader{Timeout: fetchTimeout}
	origin := js.Global().Get("location").Get("origin").String()
	return &asset.Router{
		Remote: remote,
		Local: asset.LoaderFunc(func(ctx context.Context, url string) (surface.Bitmap, error) {
			if !strings.HasPrefix(url, "/") {
				url = "/" + url
			}
			return remote.Load(ctx, origin+url)
		}),
	}
}

func ready() bool {
	return eng != nil
}

// --- Command Handlers ---

// initScene creates the scene: init(width, height, [defaultsJSON]).
func initScene(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failMsg("missing width and height")
	}
	var opts []engine.Option
	if len(args) > 2 && args[2].Type() == js.TypeString {
		opts = append(opts, engine.WithDefaults(json.RawMessage(args[2].String())))
	}
	opts = append(opts, engine.WithLoader(browserLoader()))

	canvas := surface.Canvas{Key: "canvasflow", Width: args[0].Int(), Height: args[1].Int()}
	e, err := engine.NewEngine(canvas, fonts, opts...)
	if err != nil {
		return fail(err)
	}
	eng = e
	return ok()
}

func setObject(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 1 {
		return failMsg("missing object JSON")
	}
	data := args[0].String()
	return async(func(ctx context.Context) (any, error) {
		stored, err := eng.SetObject(ctx, data)
		if err != nil {
			return nil, err
		}
		return js.ValueOf(stored), nil
	})
}

func setObjects(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 1 {
		return failMsg("missing object list JSON")
	}
	data := args[0].String()
	return async(func(ctx context.Context) (any, error) {
		return js.ValueOf(true), eng.SetObjects(ctx, data)
	})
}

func updateObject(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 2 {
		return failMsg("missing id or patch JSON")
	}
	id, patch := args[0].String(), args[1].String()
	return async(func(ctx context.Context) (any, error) {
		return js.ValueOf(true), eng.UpdateObject(ctx, id, patch)
	})
}

func deleteObject(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 1 {
		return failMsg("missing id")
	}
	if err := eng.DeleteObject(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

// moveObject moves an object: moveObject(id, x, y, ["relative"|"absolute"]).
func moveObject(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 3 {
		return failMsg("missing id, x or y")
	}
	mode := "absolute"
	if len(args) > 3 && args[3].Type() == js.TypeString {
		mode = args[3].String()
	}
	if err := eng.MoveObject(args[0].String(), args[1].Float(), args[2].Float(), mode); err != nil {
		return fail(err)
	}
	return ok()
}

func clearScene(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if err := eng.Clear(); err != nil {
		return fail(err)
	}
	return ok()
}

func setChunk(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 1 {
		return failMsg("missing chunk JSON")
	}
	if err := eng.SetChunk(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func clearChunk(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 1 {
		return failMsg("missing chunk id")
	}
	if err := eng.ClearChunk(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func clearChunks(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if err := eng.ClearChunks(); err != nil {
		return fail(err)
	}
	return ok()
}

func loadSample(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	return async(func(ctx context.Context) (any, error) {
		return js.ValueOf(true), eng.LoadSample(ctx)
	})
}

// on subscribes a callback to an event name. The callback receives the
// event as JSON. Returns a function that unsubscribes.
func on(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 2 || args[1].Type() != js.TypeFunction {
		return failMsg("missing event name or callback")
	}
	callback := args[1]
	off, err := eng.Scene().On(args[0].String(), func(ev *engine.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		callback.Invoke(string(data))
	})
	if err != nil {
		return fail(err)
	}

	var unsubscribe js.Func
	unsubscribe = js.FuncOf(func(this js.Value, args []js.Value) any {
		off()
		unsubscribe.Release()
		return nil
	})
	return unsubscribe
}

func dispatch(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("scene not initialised")
	}
	if len(args) < 1 {
		return failMsg("missing event JSON")
	}
	hits, err := eng.Dispatch(args[0].String())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(hits)
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.Render())
}

func frameSeq(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf(0)
	}
	return js.ValueOf(float64(eng.FrameSeq()))
}

func hitTest(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return js.ValueOf("[]")
	}
	hits, err := eng.HitTest(args[0].Float(), args[1].Float())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(hits)
}

func getObject(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return js.Null()
	}
	obj, err := eng.GetObject(args[0].String())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(obj)
}

func getObjects(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.GetObjects())
}

func getChunks(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.GetChunks())
}
