package imaging

import (
	"bytes"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

// ImageCache keeps decoded frames keyed by path so that repeated tool calls
// on the same capture do not decode it again.
//
// Each Load re-stats the file. A cached frame is returned only while the
// file's size and modification time are unchanged; otherwise the file is
// decoded again and the entry replaced. This lets a capture process
// overwrite "latest.png" in place without the server serving a stale frame.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(fsutil.OSFileSystem{})
//	img, err := cache.Load("/captures/latest.png")
//	if err != nil {
//	    return err
//	}
//	det, err := detector.Detect(img)
type ImageCache struct {
	fs fsutil.FileSystem

	mu     sync.RWMutex
	images map[string]cachedImage
}

type cachedImage struct {
	img     image.Image
	format  string
	size    int64
	modTime time.Time
}

// NewImageCache creates an empty cache that reads through fsys.
func NewImageCache(fsys fsutil.FileSystem) *ImageCache {
	return &ImageCache{
		fs:     fsys,
		images: make(map[string]cachedImage),
	}
}

// Load returns the decoded image at path, reading it from the file system
// when it is not cached or has changed since it was cached.
//
// Decoding honours the EXIF orientation tag, so camera JPEGs come back
// upright. Supported formats are those registered by
// github.com/disintegration/imaging: PNG, JPEG, GIF, BMP and TIFF.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable image
func (c *ImageCache) Load(path string) (image.Image, error) {
	entry, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return entry.img, nil
}

func (c *ImageCache) load(path string) (cachedImage, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to open image: %w", err)
	}
	if info.IsDir() {
		return cachedImage{}, fmt.Errorf("failed to open image: %s is a directory", path)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		return entry, nil
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to read image: %w", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to decode image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to decode image: %w", err)
	}

	entry = cachedImage{
		img:     img,
		format:  format,
		size:    int64(len(data)),
		modTime: info.ModTime(),
	}

	c.mu.Lock()
	c.images[path] = entry
	c.mu.Unlock()

	return entry, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.mu.Unlock()
}

// Evict removes the image cached under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo describes a loaded frame.
type ImageInfo struct {
	// Width is the image width in pixels, after EXIF orientation.
	Width int `json:"width"`

	// Height is the image height in pixels, after EXIF orientation.
	Height int `json:"height"`

	// Format is the format name reported by the decoder, such as "png" or
	// "jpeg". It is detected from the file contents, not the extension.
	Format string `json:"format"`

	// FileSizeBytes is the size of the file in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// MinAreaPixels is the smallest region the default detector keeps for a
	// frame of this size.
	MinAreaPixels int `json:"min_area_pixels"`
}

// LoadImageInfo loads path through cache and describes it. minArea computes
// the region area floor for the frame; pass nil to leave MinAreaPixels zero.
func LoadImageInfo(cache *ImageCache, path string, minArea func(image.Rectangle) int) (*ImageInfo, error) {
	entry, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	bounds := entry.img.Bounds()
	info := &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        entry.format,
		FileSizeBytes: entry.size,
	}
	if minArea != nil {
		info.MinAreaPixels = minArea(bounds)
	}
	return info, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of the image at path.
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
