package imagecache

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jon4hz/pictura/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T, width, height int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 50, B: 50, A: 255})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/uploads/photo.png":
			w.Header().Set("Content-Type", "image/png")
			assert.NoError(t, imaging.Encode(w, img, imaging.PNG))
		case "/uploads/text.png":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("nope"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newTestCache(t *testing.T, origin string) *Cache {
	t.Helper()
	c, err := New(&config.ImagesConfig{
		CacheDir:  filepath.Join(t.TempDir(), "images"),
		MaxWidth:  340,
		MaxHeight: 500,
		Quality:   85,
		MaxAge:    time.Hour,
	}, origin)
	require.NoError(t, err)
	return c
}

func TestCache_ScalesDownAndCaches(t *testing.T) {
	server, hits := newImageServer(t, 1000, 500)
	c := newTestCache(t, server.URL)
	ctx := context.Background()

	p, err := c.Path(ctx, server.URL+"/uploads/photo.png")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(p))

	thumb, err := imaging.Open(p)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(340, 170), thumb.Bounds().Size())

	again, err := c.Path(ctx, server.URL+"/uploads/photo.png")
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCache_DoesNotUpscale(t *testing.T) {
	server, _ := newImageServer(t, 100, 80)
	c := newTestCache(t, server.URL)

	p, err := c.Path(context.Background(), server.URL+"/uploads/photo.png")
	require.NoError(t, err)

	thumb, err := imaging.Open(p)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100, 80), thumb.Bounds().Size())
}

func TestCache_Errors(t *testing.T) {
	server, _ := newImageServer(t, 10, 10)
	c := newTestCache(t, server.URL)
	ctx := context.Background()

	_, err := c.Path(ctx, "https://elsewhere.example.com/a.png")
	assert.ErrorIs(t, err, ErrForeignURL)

	_, err = c.Path(ctx, server.URL+"/uploads/text.png")
	assert.ErrorContains(t, err, "invalid content type")

	_, err = c.Path(ctx, server.URL+"/uploads/missing.png")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestCache_Serve(t *testing.T) {
	server, _ := newImageServer(t, 400, 400)
	c := newTestCache(t, server.URL)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, URL(server.URL+"/uploads/photo.png"), nil)
	require.NoError(t, c.Serve(ctx, server.URL+"/uploads/photo.png", rec, req))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	assert.Error(t, c.Serve(ctx, "https://elsewhere.example.com/a.png", rec, req))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	assert.NoError(t, c.Serve(ctx, "", rec, req))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCache_Cleanup(t *testing.T) {
	c := newTestCache(t, "https://img.example.com")

	old := filepath.Join(c.dir, "old.jpg")
	fresh := filepath.Join(c.dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := c.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "/images/thumb?url=https%3A%2F%2Fimg.example.com%2Fa+b.jpg", URL("https://img.example.com/a b.jpg"))
	assert.Empty(t, URL(""))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension("https://x/a.PNG"))
	assert.Equal(t, ".jpg", extension("https://x/a"))
	assert.Equal(t, ".jpg", extension("https://x/a.webp"))
	assert.Equal(t, ".jpeg", extension("https://x/a.jpeg?v=2"))
}
