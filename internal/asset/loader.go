package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/inamate/canvasflow/internal/surface"
)

const maxFetchSize = 32 << 20 // 32MB

var ErrUnsupportedSource = errors.New("unsupported image source")

// Loader fetches and decodes the image at url. Load blocks until the image
// is available, the load fails, or ctx ends.
type Loader interface {
	Load(ctx context.Context, url string) (surface.Bitmap, error)
}

// LoaderFunc adapts an ordinary function to the Loader interface.
type LoaderFunc func(ctx context.Context, url string) (surface.Bitmap, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (surface.Bitmap, error) {
	return f(ctx, url)
}

// HTTPLoader fetches images over http(s). A zero Timeout lets a fetch run
// until its context ends.
type HTTPLoader struct {
	Client  *http.Client
	Timeout time.Duration
}

func (l *HTTPLoader) Load(ctx context.Context, rawURL string) (surface.Bitmap, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return surface.Bitmap{}, fmt.Errorf("build request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return surface.Bitmap{}, fmt.Errorf("fetch image %q: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return surface.Bitmap{}, fmt.Errorf("fetch image %q: status %d", rawURL, resp.StatusCode)
	}
	return Decode(rawURL, io.LimitReader(resp.Body, maxFetchSize))
}

// FileLoader reads images from a directory. Both "/assets/<name>" urls, as
// returned by the upload endpoint, and bare file names resolve inside Dir.
type FileLoader struct {
	Dir string
}

func (l *FileLoader) Load(ctx context.Context, rawURL string) (surface.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return surface.Bitmap{}, err
	}
	name := strings.TrimPrefix(rawURL, "file://")
	name = strings.TrimPrefix(name, "/assets/")
	name = filepath.Join(l.Dir, filepath.Clean("/"+name))

	f, err := os.Open(name)
	if err != nil {
		return surface.Bitmap{}, fmt.Errorf("open image %q: %w", rawURL, err)
	}
	defer f.Close()
	return Decode(rawURL, f)
}

// Router picks a loader by url scheme: http(s) urls go to Remote, anything
// else to Local.
type Router struct {
	Remote Loader
	Local  Loader
}

func (r *Router) Load(ctx context.Context, rawURL string) (surface.Bitmap, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return surface.Bitmap{}, fmt.Errorf("parse image url: %w", err)
	}
	var l Loader
	switch u.Scheme {
	case "http", "https":
		l = r.Remote
	case "", "file":
		l = r.Local
	}
	if l == nil {
		return surface.Bitmap{}, fmt.Errorf("%w: %q", ErrUnsupportedSource, rawURL)
	}
	return l.Load(ctx, rawURL)
}

// NewLoader returns the default loader: remote fetches with the given
// timeout and local reads from dir.
func NewLoader(dir string, timeout time.Duration) *Router {
	return &Router{
		Remote: &HTTPLoader{Timeout: timeout},
		Local:  &FileLoader{Dir: dir},
	}
}

// Decode reads a PNG, JPEG, GIF, WebP or BMP image from r.
func Decode(source string, r io.Reader) (surface.Bitmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return surface.Bitmap{}, fmt.Errorf("decode image %q: %w", source, err)
	}
	b := img.Bounds()
	return surface.Bitmap{
		Source: source,
		Width:  b.Dx(),
		Height: b.Dy(),
		Image:  img,
	}, nil
}
