package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
)

// ImageCache provides thread-safe caching of decoded frames and their
// luminance planes.
//
// Frames are keyed by the exact path string given to Load. Detection requests
// against the same file reuse both the decoded image and its single-channel
// reduction, so repeated tool calls on one frame cost no disk I/O and no
// conversion.
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear().
type ImageCache struct {
	mu     sync.RWMutex
	frames map[string]*frame
}

type frame struct {
	img    image.Image
	format string
	gray   *image.Gray // built on first use
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		frames: make(map[string]*frame),
	}
}

// Load retrieves an image from the cache or decodes it from disk. Supported
// formats are PNG, JPEG and GIF.
func (c *ImageCache) Load(path string) (image.Image, error) {
	f, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return f.img, nil
}

// Luminance returns the single-channel plane of the image at path, see the
// package level Luminance.
func (c *ImageCache) Luminance(path string) (*image.Gray, error) {
	f, err := c.load(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	g := f.gray
	c.mu.RUnlock()
	if g != nil {
		return g, nil
	}

	g = Luminance(f.img)
	c.mu.Lock()
	if f.gray == nil {
		f.gray = g
	}
	g = f.gray
	c.mu.Unlock()
	return g, nil
}

func (c *ImageCache) load(path string) (*frame, error) {
	c.mu.RLock()
	if f, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	f := &frame{img: img, format: format}
	c.mu.Lock()
	if cached, ok := c.frames[path]; ok {
		f = cached
	} else {
		c.frames[path] = f
	}
	c.mu.Unlock()

	return f, nil
}

// Len returns the number of cached frames.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Clear removes all frames from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*frame)
	c.mu.Unlock()
}

// Evict removes the frame loaded under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded frame.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that read the file: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// Channels is 1 for gray and alpha images, 3 or 4 otherwise.
	Channels int `json:"channels"`

	// BitDepth is the number of bits per channel, 8 or 16.
	BitDepth int `json:"bit_depth"`

	// SingleChannel is true when regions can be detected on the raw pixel
	// values. Other frames are reduced to luminance first.
	SingleChannel bool `json:"single_channel"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image into the cache and describes it.
//
// # Channel Detection
//
// Channels and depth follow the decoded Go image type:
//   - *image.Gray, *image.Alpha -> 1 channel, 8-bit
//   - *image.Gray16, *image.Alpha16 -> 1 channel, 16-bit
//   - *image.RGBA64, *image.NRGBA64 -> 4 channels, 16-bit
//   - *image.RGBA, *image.NRGBA -> 4 channels, 8-bit
//   - everything else (YCbCr, paletted, CMYK) -> 3 channels, 8-bit
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	f, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	channels, depth := 3, 8
	switch f.img.(type) {
	case *image.Gray, *image.Alpha:
		channels = 1
	case *image.Gray16, *image.Alpha16:
		channels, depth = 1, 16
	case *image.RGBA64, *image.NRGBA64:
		channels, depth = 4, 16
	case *image.RGBA, *image.NRGBA:
		channels = 4
	}

	bounds := f.img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        f.format,
		Channels:      channels,
		BitDepth:      depth,
		SingleChannel: IsSingleChannel(f.img),
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional
// metadata. The image is loaded into the cache if not already present.
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
