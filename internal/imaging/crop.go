package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	// Rect is the cropped area in source image coordinates after padding and
	// clipping.
	Rect        image.Rectangle `json:"rect"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	ImageBase64 string          `json:"image_base64"`
	MimeType    string          `json:"mime_type"`
}

// Crop extracts rect from img, optionally scaled, and returns it PNG encoded.
// rect must lie within the image bounds and be non-empty. A scale of 0 or 1
// keeps the original size.
func Crop(img image.Image, rect image.Rectangle, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", rect, bounds)
	}
	if rect.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: min must be < max", rect)
	}
	if scale < 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}

	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Rect:        rect,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropRegion crops the bounding box of a detected region grown by padding
// pixels on every side. The padded box is clipped to the image, so regions at
// the border yield smaller crops instead of an error.
func CropRegion(img image.Image, bbox image.Rectangle, padding int, scale float64) (*CropResult, error) {
	if padding < 0 {
		return nil, fmt.Errorf("invalid padding %d", padding)
	}
	rect := bbox.Inset(-padding).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v does not overlap image bounds %v", bbox, img.Bounds())
	}
	return Crop(img, rect, scale)
}
