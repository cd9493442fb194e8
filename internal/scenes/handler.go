package scenes

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/canvasflow/internal/asset"
	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
)

const maxBodySize = 4 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name     string          `json:"name"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Sample   bool            `json:"sample"`
	Defaults json.RawMessage `json:"defaults,omitempty"`
}

type moveRequest struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mode string  `json:"mode"`
}

type frameResponse struct {
	Seq      uint64                `json:"seq"`
	Commands []surface.DrawCommand `json:"commands"`
}

type hitResponse struct {
	Objects []*document.Object `json:"objects"`
}

// Register mounts the scene routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/scenes", h.List).Methods("GET")
	r.HandleFunc("/scenes", h.Create).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}", h.Get).Methods("GET")
	r.HandleFunc("/scenes/{sceneId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/scenes/{sceneId}/objects", h.ListObjects).Methods("GET")
	r.HandleFunc("/scenes/{sceneId}/objects", h.SetObjects).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}/objects/{objectId}", h.GetObject).Methods("GET")
	r.HandleFunc("/scenes/{sceneId}/objects/{objectId}", h.UpdateObject).Methods("PATCH")
	r.HandleFunc("/scenes/{sceneId}/objects/{objectId}", h.DeleteObject).Methods("DELETE")
	r.HandleFunc("/scenes/{sceneId}/objects/{objectId}/move", h.MoveObject).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}/clear", h.Clear).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}/chunks", h.ListChunks).Methods("GET")
	r.HandleFunc("/scenes/{sceneId}/chunks", h.SetChunk).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}/chunks", h.ClearChunks).Methods("DELETE")
	r.HandleFunc("/scenes/{sceneId}/chunks/{chunkId}", h.ClearChunk).Methods("DELETE")
	r.HandleFunc("/scenes/{sceneId}/hit", h.HitTest).Methods("GET")
	r.HandleFunc("/scenes/{sceneId}/events", h.Dispatch).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}/frame", h.Frame).Methods("GET")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	var (
		scene *Scene
		err   error
	)
	switch {
	case req.Sample:
		scene, err = h.service.CreateSample(r.Context(), req.Name)
	case len(req.Defaults) > 0:
		defaults, derr := document.DecodeDefaults(req.Defaults)
		if derr != nil {
			handleServiceError(w, derr)
			return
		}
		scene, err = h.service.CreateWithDefaults(req.Name, req.Width, req.Height, defaults)
	default:
		scene, err = h.service.Create(req.Name, req.Width, req.Height)
	}
	if err != nil {
		slog.Error("create scene failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, scene)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scene, err := h.service.Get(mux.Vars(r)["sceneId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(mux.Vars(r)["sceneId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Objects ---

func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scene.GetObjects())
}

// SetObjects stores one record or a list of records. A list is committed
// as a single batch.
func (h *Handler) SetObjects(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if bytes.HasPrefix(body, []byte("[")) {
		objs, err := document.DecodeObjects(body)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		stored, err := scene.SetObjects(r.Context(), objs)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
		return
	}

	o, err := document.DecodeObject(body)
	if err != nil {
		handleServiceError(w, wrapDecode(err))
		return
	}
	if _, err := scene.SetObject(r.Context(), o); err != nil {
		handleServiceError(w, err)
		return
	}
	stored, err := scene.GetObject(o.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	o, err := scene.GetObject(document.ID(mux.Vars(r)["objectId"]))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	var patch document.Patch
	if err := json.Unmarshal(body, &patch); err != nil {
		handleServiceError(w, wrapDecode(err))
		return
	}

	updated, err := scene.UpdateObject(r.Context(), document.ID(mux.Vars(r)["objectId"]), &patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	if err := scene.DeleteObject(document.ID(mux.Vars(r)["objectId"])); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MoveObject(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id := document.ID(mux.Vars(r)["objectId"])
	if err := scene.MoveObject(id, req.X, req.Y, engine.ParseMode(req.Mode)); err != nil {
		handleServiceError(w, err)
		return
	}
	o, err := scene.GetObject(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	if err := scene.Clear(); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Chunks ---

func (h *Handler) ListChunks(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	chunks := scene.Chunks()
	if chunks == nil {
		chunks = []engine.Chunk{}
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (h *Handler) SetChunk(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	c, err := engine.DecodeChunk(body)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if err := scene.SetChunk(c); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ClearChunk(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	if err := scene.ClearChunk(document.ID(mux.Vars(r)["chunkId"])); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearChunks(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	if err := scene.ClearChunks(); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Queries ---

func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "x and y must be numbers"})
		return
	}
	hits, err := scene.HitTest(x, y)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hitResponse{Objects: nonNil(hits)})
}

// Dispatch runs an input event through the scene's subscribers and returns
// the objects it hit.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	var ev engine.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	hits, err := scene.Dispatch(&ev)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hitResponse{Objects: nonNil(hits)})
}

func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	eng, err := h.service.Engine(mux.Vars(r)["sceneId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	cmds, seq := eng.Frame()
	if cmds == nil {
		cmds = []surface.DrawCommand{}
	}
	writeJSON(w, http.StatusOK, frameResponse{Seq: seq, Commands: cmds})
}

func (h *Handler) scene(w http.ResponseWriter, r *http.Request) (*engine.Scene, bool) {
	eng, err := h.service.Engine(mux.Vars(r)["sceneId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return eng.Scene(), true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}

// wrapDecode tags JSON syntax errors as shape errors; coded decode errors
// pass through.
func wrapDecode(err error) error {
	var coded *document.Error
	if errors.As(err, &coded) {
		return err
	}
	return errors.Join(document.ErrInvalidArgumentShape, err)
}

func nonNil(objs []*document.Object) []*document.Object {
	if objs == nil {
		return []*document.Object{}
	}
	return objs
}

// StatusFor maps a scene error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, document.ErrUnknownIdentifier):
		return http.StatusNotFound
	case errors.Is(err, document.ErrIdentifierImmutable), errors.Is(err, document.ErrTypeImmutable):
		return http.StatusConflict
	case errors.Is(err, document.ErrNoSurfaceBound):
		return http.StatusServiceUnavailable
	case document.Code(err) != 0,
		errors.Is(err, surface.ErrInvalidColor),
		errors.Is(err, asset.ErrUnsupportedSource):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func handleServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := map[string]any{"error": err.Error()}
	if code := document.Code(err); code != 0 {
		body["code"] = code
	}
	if status == http.StatusBadGateway {
		slog.Warn("scene operation failed", "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
