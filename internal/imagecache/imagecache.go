// Package imagecache downloads photos from the image host, scales them down to thumbnails
// and serves them from a local directory.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/jon4hz/pictura/internal/config"
	"golang.org/x/sync/singleflight"
)

// RoutePath is where the web front end mounts Serve.
const RoutePath = "/images/thumb"

// ErrForeignURL is returned for images that are not hosted by the image host.
var ErrForeignURL = errors.New("image is not served by the image host")

const tmpPrefix = "tmp_"

// Cache is an on-disk thumbnail cache.
type Cache struct {
	dir       string
	origin    string
	client    *http.Client
	maxWidth  int
	maxHeight int
	quality   int
	maxAge    time.Duration

	group singleflight.Group
}

// New creates the cache directory and returns a cache that only fetches images below origin.
func New(cfg *config.ImagesConfig, origin string) (*Cache, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image cache directory: %w", err)
	}
	return &Cache{
		dir:       cfg.CacheDir,
		origin:    strings.TrimSuffix(origin, "/") + "/",
		client:    &http.Client{Timeout: 30 * time.Second},
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		quality:   cfg.Quality,
		maxAge:    cfg.MaxAge,
	}, nil
}

// URL returns the local thumbnail URL of an absolute image URL.
func URL(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	return RoutePath + "?url=" + url.QueryEscape(imageURL)
}

func (c *Cache) filePath(imageURL string) string {
	hash := sha256.Sum256([]byte(imageURL))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:16])+extension(imageURL))
}

// extension keeps formats imaging can write, everything else becomes a jpeg.
func extension(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return ext
	default:
		return ".jpg"
	}
}

// Path returns the local file of the thumbnail, downloading it first if necessary.
// Concurrent calls for the same image share one download.
func (c *Cache) Path(ctx context.Context, imageURL string) (string, error) {
	if !strings.HasPrefix(imageURL, c.origin) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, imageURL)
	}

	target := c.filePath(imageURL)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	_, err, _ := c.group.Do(target, func() (any, error) {
		log.Debug("Downloading image", "url", imageURL)
		return nil, c.download(ctx, imageURL, target)
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

func (c *Cache) download(ctx context.Context, imageURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("invalid content type: %s", ct)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	// Fit never upscales
	thumb := imaging.Fit(img, c.maxWidth, c.maxHeight, imaging.Lanczos)

	tmp := filepath.Join(filepath.Dir(target), tmpPrefix+filepath.Base(target))
	defer os.Remove(tmp) //nolint:errcheck

	if err := imaging.Save(thumb, tmp, imaging.JPEGQuality(c.quality), imaging.PNGCompressionLevel(6)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to move thumbnail: %w", err)
	}

	log.Debug("Cached thumbnail",
		"url", imageURL,
		"original", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"thumbnail", fmt.Sprintf("%dx%d", thumb.Bounds().Dx(), thumb.Bounds().Dy()),
	)
	return nil
}

// Serve writes the thumbnail of imageURL to w.
func (c *Cache) Serve(ctx context.Context, imageURL string, w http.ResponseWriter, r *http.Request) error {
	if imageURL == "" {
		http.NotFound(w, r)
		return nil
	}

	file, err := c.Path(ctx, imageURL)
	if err != nil {
		if errors.Is(err, ErrForeignURL) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return err
		}
		log.Error("Failed to get cached image", "url", imageURL, "error", err)
		http.Error(w, "Failed to get image", http.StatusBadGateway)
		return err
	}

	f, err := os.Open(file) //nolint:gosec
	if err != nil {
		log.Error("Failed to open cached image", "error", err)
		http.Error(w, "Failed to open image", http.StatusInternalServerError)
		return err
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Failed to open image", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(c.browserMaxAge().Seconds())))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}

func (c *Cache) browserMaxAge() time.Duration {
	if c.maxAge > 0 && c.maxAge < 24*time.Hour {
		return c.maxAge
	}
	return 24 * time.Hour
}

// Cleanup removes thumbnails older than maxAge and returns how many were removed.
func (c *Cache) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.WalkDir(c.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			log.Debug("Removing old cached image", "path", p)
			if err := os.Remove(p); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// MaxAge returns the configured age after which thumbnails are removed.
func (c *Cache) MaxAge() time.Duration {
	return c.maxAge
}
