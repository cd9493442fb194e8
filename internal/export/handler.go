package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/scenes"
	"github.com/inamate/canvasflow/internal/surface"
	"github.com/inamate/canvasflow/internal/typeid"
)

// EngineSource resolves the live engine of a scene.
type EngineSource interface {
	Engine(sceneID string) (*engine.Engine, error)
}

type Handler struct {
	scenes EngineSource
	fonts  *surface.Fonts
}

func NewHandler(scenes EngineSource, fonts *surface.Fonts) *Handler {
	return &Handler{scenes: scenes, fonts: fonts}
}

// ExportPNG rasterizes the current state of a scene. With ?download=1 the
// response is sent as an attachment named after the export id, or after
// ?name when given.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]

	eng, err := h.scenes.Engine(sceneID)
	if err != nil {
		writeError(w, scenes.StatusFor(err), err)
		return
	}

	exportID := typeid.NewExportID()
	canvas := eng.Scene().Surface().Canvas()
	raster := surface.NewRaster(canvas, h.fonts)
	if err := eng.Scene().RenderTo(raster); err != nil {
		slog.Warn("export render failed", "scene", sceneID, "export", exportID, "error", err)
		writeError(w, scenes.StatusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf); err != nil {
		slog.Error("encode png", "scene", sceneID, "export", exportID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Id", exportID)
	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		name := sanitize(r.URL.Query().Get("name"))
		if name == "" {
			name = exportID
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, name))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())

	slog.Info("export complete", "scene", sceneID, "export", exportID, "size", buf.Len())
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}
