package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/surface"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCache(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", surface.Bitmap{Source: "a.png", Width: 2})
	c.PutAll(map[document.ID]surface.Bitmap{"b": {Source: "b.png"}, "0": {Source: "zero.png"}})
	assert.Equal(t, 3, c.Len())

	b, ok := c.Get("0")
	require.True(t, ok)
	assert.Equal(t, "zero.png", b.Source)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
	c.Delete("missing")

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestLoadAll(t *testing.T) {
	l := LoaderFunc(func(_ context.Context, url string) (surface.Bitmap, error) {
		return surface.Bitmap{Source: url, Width: len(url)}, nil
	})
	got, err := LoadAll(context.Background(), l, []Request{{ID: "1", URL: "a"}, {ID: "2", URL: "bb"}})
	require.NoError(t, err)
	assert.Equal(t, 1, got["1"].Width)
	assert.Equal(t, 2, got["2"].Width)

	empty, err := LoadAll(context.Background(), l, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadAllFailureCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	var cancelled atomic.Bool
	l := LoaderFunc(func(ctx context.Context, url string) (surface.Bitmap, error) {
		if url == "bad" {
			return surface.Bitmap{}, boom
		}
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			return surface.Bitmap{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return surface.Bitmap{Source: url}, nil
		}
	})

	got, err := LoadAll(context.Background(), l, []Request{{ID: "1", URL: "bad"}, {ID: "2", URL: "slow"}})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
	assert.True(t, cancelled.Load())
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pic.png"), pngBytes(t, 3, 2), 0644))

	l := &FileLoader{Dir: dir}
	for _, url := range []string{"pic.png", "/assets/pic.png", "file://pic.png"} {
		b, err := l.Load(context.Background(), url)
		require.NoError(t, err, url)
		assert.Equal(t, 3, b.Width)
		assert.Equal(t, 2, b.Height)
		assert.Equal(t, url, b.Source)
	}

	_, err := l.Load(context.Background(), "../outside.png")
	assert.Error(t, err)
	_, err = l.Load(context.Background(), "missing.png")
	assert.Error(t, err)
}

func TestHTTPLoader(t *testing.T) {
	data := pngBytes(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(data)
		case "/garbage":
			w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := &HTTPLoader{Timeout: time.Second}
	b, err := l.Load(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, 4, b.Width)

	_, err = l.Load(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")

	_, err = l.Load(context.Background(), srv.URL+"/garbage")
	assert.ErrorContains(t, err, "decode image")
}

func TestHTTPLoaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	l := &HTTPLoader{Timeout: 20 * time.Millisecond}
	_, err := l.Load(context.Background(), srv.URL+"/slow.png")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRouter(t *testing.T) {
	var remote, local string
	r := &Router{
		Remote: LoaderFunc(func(_ context.Context, url string) (surface.Bitmap, error) {
			remote = url
			return surface.Bitmap{}, nil
		}),
		Local: LoaderFunc(func(_ context.Context, url string) (surface.Bitmap, error) {
			local = url
			return surface.Bitmap{}, nil
		}),
	}
	_, err := r.Load(context.Background(), "https://example.com/a.png")
	require.NoError(t, err)
	_, err = r.Load(context.Background(), "/assets/b.png")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", remote)
	assert.Equal(t, "/assets/b.png", local)

	_, err = r.Load(context.Background(), "ftp://example.com/c.png")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func multipartUpload(t *testing.T, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="pic.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	part.Write(body)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadServeDelete(t *testing.T) {
	h := NewHandler(t.TempDir())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartUpload(t, "image/png", pngBytes(t, 5, 6)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Width)
	assert.Equal(t, 6, resp.Height)
	assert.Equal(t, "/assets/"+resp.ID+".png", resp.URL)

	// The returned url is loadable by the file loader.
	b, err := (&FileLoader{Dir: h.Dir()}).Load(context.Background(), resp.URL)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Width)

	rec = httptest.NewRecorder()
	h.Serve().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")

	require.NoError(t, h.Delete(resp.ID))
	assert.Error(t, h.Delete(resp.ID))
	assert.Error(t, h.Delete("not-an-asset"))
}

func TestUploadRejectsUnsupported(t *testing.T) {
	h := NewHandler(t.TempDir())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartUpload(t, "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Upload(rec, multipartUpload(t, "image/png", []byte("not png")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
