package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded images and of scaled
// tile images.
//
// Decoded images are keyed by path. Scaled images are keyed by path, target
// size and resampler, so a tile used in many grid cells is decoded and resized
// only once per run.
//
// ImageCache is safe for concurrent use by multiple goroutines. Two goroutines
// missing the cache for the same key at the same time both decode; the last
// write wins and both results are identical.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). Scaled tiles are small; decoded full-size images are not, so the
// composer only uses LoadScaled.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	scaled map[string]*image.NRGBA
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		scaled: make(map[string]*image.NRGBA),
	}
}

// Open decodes the image at path, applying EXIF orientation.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// CheckDecodable verifies that path exists and carries a decodable image
// header without decoding the pixel data.
func CheckDecodable(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("failed to decode image header %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("image %s has no pixels", path)
	}
	return cfg, format, nil
}

// Save encodes img to path. The format is chosen from the file extension;
// quality applies to JPEG output. Missing parent directories are created.
func Save(img image.Image, path string, quality int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths
// to the same file (e.g., relative vs absolute) result in separate entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

func scaledKey(path string, width, height int, r Resampler) string {
	return fmt.Sprintf("%s@%dx%d/%s", path, width, height, r.Name())
}

// LoadScaled returns the image at path resized to exactly width x height with
// r. The decoded original is not retained.
func (c *ImageCache) LoadScaled(path string, width, height int, r Resampler) (*image.NRGBA, error) {
	key := scaledKey(path, width, height, r)

	c.mu.RLock()
	if img, ok := c.scaled[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	tile := r.Resize(img, width, height)

	c.mu.Lock()
	c.scaled[key] = tile
	c.mu.Unlock()

	return tile, nil
}

// Len returns the number of decoded and scaled images held.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images) + len(c.scaled)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.scaled = make(map[string]*image.NRGBA)
	c.mu.Unlock()
}

// Evict removes the decoded image and every scaled variant of path.
func (c *ImageCache) Evict(path string) {
	prefix := path + "@"
	c.mu.Lock()
	delete(c.images, path)
	for key := range c.scaled {
		if strings.HasPrefix(key, prefix) {
			delete(c.scaled, key)
		}
	}
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format based on file extension:
	// "png", "jpeg", "gif", "bmp", "tiff", "webp" or "unknown".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// TileEligible reports whether the extension is accepted in a tile pool.
	TileEligible bool `json:"tile_eligible"`
}

// IsTileExtension reports whether ext (with leading dot) is accepted for
// tile pool images: .jpg, .jpeg or .png in any letter case.
func IsTileExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// LoadImageInfo loads an image and returns metadata about it.
//
// The image is loaded into the cache if not already present.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	format := "unknown"
	switch ext {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".bmp":
		format = "bmp"
	case ".tif", ".tiff":
		format = "tiff"
	case ".webp":
		format = "webp"
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
		TileEligible:  IsTileExtension(ext),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
