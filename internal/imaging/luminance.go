package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// IsSingleChannel reports whether img can be handed to the region detector
// without a channel reduction.
func IsSingleChannel(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return true
	}
	return false
}

// Luminance reduces img to a single 8-bit channel.
//
// Single-channel images are returned unchanged when they are 8-bit gray.
// Everything else goes through bild's weighted grayscale conversion. The
// result keeps the bounds of img so that region coordinates stay in the
// source image's coordinate space.
func Luminance(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return rebase(toGray(effect.Grayscale(img)), img.Bounds())
}

// Threshold binarises the luminance of img: pixels at or above level become
// 255, all others 0.
func Threshold(img image.Image, level int) (*image.Gray, error) {
	if level < 0 || level > 255 {
		return nil, fmt.Errorf("threshold %d out of range 0-255", level)
	}
	return rebase(segment.Threshold(img, uint8(level)), img.Bounds()), nil
}

// rebase moves g, which bild returns anchored at the origin, onto bounds.
func rebase(g *image.Gray, bounds image.Rectangle) *image.Gray {
	if g.Rect.Size() == bounds.Size() {
		g.Rect = bounds
	}
	return g
}

// toGray copies bild's grayscale output, which carries the same value in R,
// G and B, into an 8-bit gray image with the same rectangle.
func toGray(rgba *image.RGBA) *image.Gray {
	g := image.NewGray(rgba.Rect)
	for y := rgba.Rect.Min.Y; y < rgba.Rect.Max.Y; y++ {
		for x := rgba.Rect.Min.X; x < rgba.Rect.Max.X; x++ {
			g.Pix[g.PixOffset(x, y)] = rgba.Pix[rgba.PixOffset(x, y)]
		}
	}
	return g
}
