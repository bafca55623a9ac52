package detection

import (
	"image"
	"math"
	"testing"
)

func TestBoundary_Rectangle(t *testing.T) {
	img := newGray(10, 10, 0)
	fillRect(img, image.Rect(0, 0, 3, 2), 255)

	d := New()
	d.SetRestrictions(0, math.MaxInt, 255, 255)
	regions := mustDetect(t, d, img)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}

	want := []image.Point{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {1, 1}, {0, 1}}
	got := regions[0].Boundary()
	if len(got) != len(want) {
		t.Fatalf("boundary %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("boundary %v, want %v", got, want)
		}
	}
}

func TestBoundary_SquareExcludesInterior(t *testing.T) {
	img := newGray(12, 12, 0)
	fillRect(img, image.Rect(2, 3, 8, 9), 255)

	d := New()
	d.SetRestrictions(0, math.MaxInt, 255, 255)
	regions := mustDetect(t, d, img)
	b := regions[0].Boundary()

	if len(b) != 20 {
		t.Errorf("boundary has %d pixels, want 20", len(b))
	}
	rect := image.Rect(2, 3, 8, 9)
	for _, p := range b {
		onEdge := p.X == rect.Min.X || p.X == rect.Max.X-1 || p.Y == rect.Min.Y || p.Y == rect.Max.Y-1
		if !onEdge || !p.In(rect) {
			t.Errorf("boundary pixel %v not on the rectangle edge", p)
		}
	}
	if b[0] != regions[0].FirstPixel() {
		t.Errorf("boundary starts at %v, want first pixel %v", b[0], regions[0].FirstPixel())
	}
	if l := regions[0].BoundaryLength(); l != 20 {
		t.Errorf("boundary length %v, want 20", l)
	}
}

func TestBoundary_IsCachedAndLazy(t *testing.T) {
	img := newGray(8, 8, 0)
	fillRect(img, image.Rect(1, 1, 4, 4), 255)

	d := New()
	d.SetRestrictions(0, math.MaxInt, 255, 255)
	regions := mustDetect(t, d, img)
	r := regions[0]

	if r.boundaryDone || d.labelsReady {
		t.Fatal("boundary traced before it was requested")
	}
	first := r.Boundary()
	second := r.Boundary()
	if &first[0] != &second[0] {
		t.Error("boundary not cached")
	}
}

func TestBoundary_ThinShapes(t *testing.T) {
	tests := []struct {
		name string
		rect image.Rectangle
		want int
	}{
		{"horizontal line", image.Rect(1, 1, 6, 2), 8},
		{"vertical line", image.Rect(2, 1, 3, 5), 6},
		{"two pixels", image.Rect(1, 1, 3, 2), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newGray(8, 8, 0)
			fillRect(img, tt.rect, 255)

			d := New()
			d.SetRestrictions(0, math.MaxInt, 255, 255)
			regions := mustDetect(t, d, img)
			b := regions[0].Boundary()
			if len(b) != tt.want {
				t.Errorf("boundary %v has %d pixels, want %d", b, len(b), tt.want)
			}
			for _, p := range b {
				if !p.In(tt.rect) {
					t.Errorf("boundary pixel %v outside %v", p, tt.rect)
				}
			}
		})
	}
}

func TestBoundary_FormFactor(t *testing.T) {
	img := newGray(64, 64, 0)
	fillRect(img, image.Rect(10, 10, 40, 40), 255)
	fillRect(img, image.Rect(2, 50, 62, 52), 255)

	d := New()
	d.SetRestrictions(0, math.MaxInt, 255, 255)
	regions := mustDetect(t, d, img)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	square, bar := regions[0].FormFactor(), regions[1].FormFactor()
	if square >= bar {
		t.Errorf("square form factor %v should be below bar %v", square, bar)
	}
}

func TestInsidePolygon(t *testing.T) {
	square := []image.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	tests := []struct {
		p    image.Point
		want bool
	}{
		{image.Pt(2, 2), true},
		{image.Pt(1, 3), true},
		{image.Pt(5, 2), false},
		{image.Pt(-1, 2), false},
		{image.Pt(2, 6), false},
	}
	for _, tt := range tests {
		if got := insidePolygon(square, tt.p); got != tt.want {
			t.Errorf("insidePolygon(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	diamond := []image.Point{{2, 0}, {4, 2}, {2, 4}, {0, 2}}
	if !insidePolygon(diamond, image.Pt(2, 2)) {
		t.Error("diamond center reported outside")
	}
	if insidePolygon(diamond, image.Pt(0, 0)) {
		t.Error("diamond corner reported inside")
	}
}
