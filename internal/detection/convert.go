package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// FloatImage is a single-channel raster of real-valued samples, such as a
// depth map or a probability map.
//
// Detection works on 8-bit values, so a FloatImage is quantised through its
// window: Lo maps to 0, Hi maps to 255, values outside the window are clamped
// and NaN maps to 0. Precision lost here directly moves region boundaries, so
// choose the window to cover the values that matter.
type FloatImage struct {
	Pix    []float64
	Stride int
	Rect   image.Rectangle
	Lo, Hi float64
}

// NewFloatImage returns a zeroed FloatImage with the given bounds and
// quantisation window.
func NewFloatImage(r image.Rectangle, lo, hi float64) *FloatImage {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &FloatImage{
		Pix:    make([]float64, w*h),
		Stride: w,
		Rect:   r,
		Lo:     lo,
		Hi:     hi,
	}
}

// ColorModel implements image.Image.
func (p *FloatImage) ColorModel() color.Model { return color.GrayModel }

// Bounds implements image.Image.
func (p *FloatImage) Bounds() image.Rectangle { return p.Rect }

// At implements image.Image by returning the quantised sample.
func (p *FloatImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.Gray{}
	}
	return color.Gray{Y: p.quantize(p.Pix[p.offset(x, y)])}
}

// Set stores a raw sample.
func (p *FloatImage) Set(x, y int, v float64) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.Pix[p.offset(x, y)] = v
}

// Float returns the raw sample at (x, y).
func (p *FloatImage) Float(x, y int) float64 {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	return p.Pix[p.offset(x, y)]
}

func (p *FloatImage) offset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x - p.Rect.Min.X)
}

func (p *FloatImage) quantize(v float64) uint8 {
	if math.IsNaN(v) || p.Hi <= p.Lo {
		return 0
	}
	t := (v - p.Lo) / (p.Hi - p.Lo) * 255
	switch {
	case t <= 0:
		return 0
	case t >= 255:
		return 255
	default:
		return uint8(math.Round(t))
	}
}

// toGray converts img into the detector's 8-bit working form.
//
// *image.Gray is used as is. Other single-channel depths are narrowed into
// the detector's scratch buffer: 16-bit samples keep their high byte, float
// samples are quantised through their window. Multi-channel images are
// rejected; callers reduce them explicitly (for example to luminance) so the
// channel choice is never implicit.
func (d *RegionDetector) toGray(img image.Image) (*image.Gray, error) {
	switch im := img.(type) {
	case *image.Gray:
		if im == nil {
			return nil, nil
		}
		return im, nil
	case *image.Gray16:
		if im == nil {
			return nil, nil
		}
		g := d.scratchGray(im.Rect)
		narrow16(g, im.Pix, im.Stride)
		return g, nil
	case *image.Alpha:
		if im == nil {
			return nil, nil
		}
		g := d.scratchGray(im.Rect)
		for y := 0; y < g.Rect.Dy(); y++ {
			copy(g.Pix[y*g.Stride:y*g.Stride+g.Rect.Dx()], im.Pix[y*im.Stride:])
		}
		return g, nil
	case *image.Alpha16:
		if im == nil {
			return nil, nil
		}
		g := d.scratchGray(im.Rect)
		narrow16(g, im.Pix, im.Stride)
		return g, nil
	case *FloatImage:
		if im == nil {
			return nil, nil
		}
		g := d.scratchGray(im.Rect)
		w := g.Rect.Dx()
		for y := 0; y < g.Rect.Dy(); y++ {
			src := im.Pix[y*im.Stride : y*im.Stride+w]
			dst := g.Pix[y*g.Stride : y*g.Stride+w]
			for x, v := range src {
				dst[x] = im.quantize(v)
			}
		}
		return g, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrMultiChannel, img)
	}
}

// narrow16 copies the high byte of big-endian 16-bit samples into g.
func narrow16(g *image.Gray, pix []uint8, stride int) {
	w := g.Rect.Dx()
	for y := 0; y < g.Rect.Dy(); y++ {
		src := pix[y*stride:]
		dst := g.Pix[y*g.Stride : y*g.Stride+w]
		for x := range dst {
			dst[x] = src[2*x]
		}
	}
}

// scratchGray returns the reusable conversion buffer sized to r.
func (d *RegionDetector) scratchGray(r image.Rectangle) *image.Gray {
	n := r.Dx() * r.Dy()
	if n < 0 {
		n = 0
	}
	if cap(d.scratch) < n {
		d.scratch = make([]uint8, n)
	}
	return &image.Gray{Pix: d.scratch[:n], Stride: r.Dx(), Rect: r}
}
