package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/lucasb-eyer/go-colorful"
)

// Mark is one annotated region on an overlay.
type Mark struct {
	// Outline pixels are painted in Color.
	Outline []image.Point

	// Label is drawn next to Anchor. Only digits are rendered.
	Label  string
	Anchor image.Point

	// Color is a "#rrggbb" hex string.
	Color string
}

// OverlayResult contains the annotated frame
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Marks       int    `json:"marks"`
}

// Overlay paints the outlines and labels of marks over a copy of img and
// returns it PNG encoded. Outline points outside the image are skipped.
func Overlay(img image.Image, marks []Mark) (*OverlayResult, error) {
	bounds := img.Bounds()

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	for i, m := range marks {
		c, err := colorful.Hex(m.Color)
		if err != nil {
			return nil, fmt.Errorf("mark %d: invalid color %q: %w", i, m.Color, err)
		}
		r, g, b := c.RGB255()
		fg := color.RGBA{R: r, G: g, B: b, A: 255}

		for _, p := range m.Outline {
			if p.In(bounds) {
				result.SetRGBA(p.X, p.Y, fg)
			}
		}
		if m.Label != "" {
			drawLabel(result, m.Anchor.X+1, m.Anchor.Y+1, m.Label, fg, color.RGBA{0, 0, 0, 180})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Marks:       len(marks),
	}, nil
}

// digitGlyphs is a 3x5 pixel font.
var digitGlyphs = map[rune][5]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text on a filled background box with its top-left corner
// at (x, y). Runes without a glyph leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	const charWidth, labelHeight = 4, 6
	bounds := img.Bounds()

	box := image.Rect(x-1, y-1, x+len(text)*charWidth, y+labelHeight).Intersect(bounds)
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	cx := x
	for _, ch := range text {
		glyph, ok := digitGlyphs[ch]
		if ok {
			for row, line := range glyph {
				for col, pixel := range line {
					p := image.Pt(cx+col, y+row)
					if pixel == '1' && p.In(bounds) {
						img.SetRGBA(p.X, p.Y, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
